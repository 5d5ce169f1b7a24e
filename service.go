package phoneconfirm

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Service runs the confirmation lifecycle: issue a code for a phone number,
// match it back within the activation window and exchange it for a signed
// activation token.
type Service struct {
	cfg            Config
	store          ConfirmationStore
	hooks          *Hooks
	codec          *TokenCodec
	activitySink   ActivitySink
	now            func() time.Time
	logger         Logger
	loggerProvider LoggerProvider
}

// Option customizes a Service
type Option func(*Service)

// WithStore sets the confirmation store. Defaults to a MemoryStore.
func WithStore(store ConfirmationStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithHooks sets the hook registry.
func WithHooks(hooks *Hooks) Option {
	return func(s *Service) {
		if hooks != nil {
			s.hooks = hooks
		}
	}
}

// WithClock overrides the service clock. The default token codec shares it.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		s.loggerProvider, s.logger = ResolveLogger("phoneconfirm", nil, logger)
	}
}

// WithLoggerProvider sets the logger provider.
func WithLoggerProvider(provider LoggerProvider) Option {
	return func(s *Service) {
		s.loggerProvider, s.logger = ResolveLogger("phoneconfirm", provider, s.logger)
	}
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func WithActivitySink(sink ActivitySink) Option {
	return func(s *Service) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithTokenCodec replaces the codec built from Config.
func WithTokenCodec(codec *TokenCodec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone confirmation config")
	}

	provider, logger := ResolveLogger("phoneconfirm", nil, nil)
	s := &Service{
		cfg:            cfg,
		activitySink:   noopActivitySink{},
		now:            time.Now,
		logger:         logger,
		loggerProvider: provider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.store == nil {
		s.store = NewMemoryStore()
	}

	if s.hooks == nil {
		s.hooks = NewHooks().WithLoggerProvider(s.loggerProvider)
	}

	if s.codec == nil {
		codec, err := NewTokenCodecFromConfig(cfg, WithTokenClock(s.now))
		if err != nil {
			return nil, err
		}
		s.codec = codec
	}

	return s, nil
}

// Config returns the configuration the service was built with
func (s *Service) Config() Config {
	return s.cfg
}

// Hooks returns the hook registry so callers can register handlers
func (s *Service) Hooks() *Hooks {
	return s.hooks
}

// Store returns the configured store
func (s *Service) Store() ConfirmationStore {
	return s.store
}

// RequestConfirmation creates a confirmation for phoneNumber, evicts the oldest
// record when the per phone cap is exceeded and notifies confirmation_issued
// listeners. Hook failures are logged and do not fail the request.
func (s *Service) RequestConfirmation(ctx context.Context, phoneNumber string, firstName *string) (*Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phone, err := NormalizePhoneNumber(phoneNumber, s.cfg.DefaultRegion, s.cfg.StrictPhoneValidation)
	if err != nil {
		return nil, err
	}

	if !validFirstName(firstName) {
		return nil, ErrFirstNameTooLong
	}

	code, err := GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, err
	}

	key, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate confirmation id")
	}

	record := &Confirmation{
		ID:            id,
		CreatedAt:     s.now().UTC(),
		PhoneNumber:   phone,
		Code:          code,
		ActivationKey: key,
	}
	if firstName != nil {
		name := *firstName
		record.FirstName = &name
	}

	if err := s.insertCapped(ctx, record); err != nil {
		return nil, err
	}

	silent := s.cfg.IsSilent(phone)
	if err := s.hooks.EmitConfirmationIssued(ctx, ConfirmationIssued{
		ConfirmationID: record.ID.String(),
		PhoneNumber:    phone,
		FirstName:      record.GetFirstName(),
		Code:           code,
		Silent:         silent,
	}); err != nil {
		s.logger.Warn("confirmation issued with hook failures", "phone_number", phone, "error", err)
	}

	s.emitActivity(ctx, ActivityEventConfirmationRequested, phone, record.ID.String(), map[string]any{
		"silent": silent,
	})

	return record, nil
}

func (s *Service) insertCapped(ctx context.Context, record *Confirmation) error {
	if capped, ok := s.store.(CappedConfirmationStore); ok {
		evicted, count, err := capped.InsertCapped(ctx, record, s.cfg.MaxConfirmations)
		if err != nil {
			return insertError(err)
		}
		if evicted != nil {
			s.recordEviction(ctx, record.PhoneNumber, evicted, count)
		}
		return nil
	}

	if _, err := s.store.Insert(ctx, record); err != nil {
		return insertError(err)
	}
	return s.evictOverflow(ctx, record.PhoneNumber)
}

func insertError(err error) error {
	if errors.Is(err, ErrDuplicateConfirmation) {
		return err
	}
	return storeError(err, "failed to store phone confirmation")
}

func (s *Service) evictOverflow(ctx context.Context, phone string) error {
	count, err := s.store.CountByPhone(ctx, phone)
	if err != nil {
		return storeError(err, "failed to count phone confirmations")
	}

	if count <= s.cfg.MaxConfirmations {
		return nil
	}

	oldest, err := s.store.OldestByPhone(ctx, phone)
	if err != nil {
		if IsConfirmationNotFound(err) {
			return nil
		}
		return storeError(err, "failed to load oldest phone confirmation")
	}

	if err := s.store.Delete(ctx, oldest); err != nil {
		return storeError(err, "failed to evict phone confirmation")
	}

	s.recordEviction(ctx, phone, oldest, count)
	return nil
}

func (s *Service) recordEviction(ctx context.Context, phone string, evicted *Confirmation, count int) {
	s.logger.Debug("evicted oldest phone confirmation", "phone_number", phone, "count", count)
	s.emitActivity(ctx, ActivityEventConfirmationEvicted, phone, evicted.ID.String(), map[string]any{
		"count": count,
		"max":   s.cfg.MaxConfirmations,
	})
}

// VerifyOption customizes a single verification
type VerifyOption func(*verifyOptions)

type verifyOptions struct {
	user any
}

// WithActivationUser forwards user to activation_created listeners.
func WithActivationUser(user any) VerifyOption {
	return func(o *verifyOptions) {
		o.user = user
	}
}

// VerifyByPhoneAndCode matches code against the confirmations of phoneNumber
// created within the activation window. When several match, the most recent
// wins. On success every confirmation of the phone is deleted.
func (s *Service) VerifyByPhoneAndCode(ctx context.Context, phoneNumber, code string, opts ...VerifyOption) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phone, err := NormalizePhoneNumber(phoneNumber, s.cfg.DefaultRegion, s.cfg.StrictPhoneValidation)
	if err != nil {
		s.rejectCode(ctx, phoneNumber, "", "invalid_phone_number")
		return nil, ErrInvalidCode
	}

	if !s.wellFormedCode(code) {
		s.rejectCode(ctx, phone, "", "malformed_code")
		return nil, ErrInvalidCode
	}

	notOlderThan := s.now().UTC().Add(-s.cfg.MatchWindow())
	record, err := s.store.Find(ctx, phone, code, notOlderThan)
	if err != nil {
		if IsConfirmationNotFound(err) {
			s.rejectCode(ctx, phone, "", "no_match")
			return nil, ErrInvalidCode
		}
		return nil, storeError(err, "failed to find phone confirmation")
	}

	return s.complete(ctx, record, opts...)
}

// VerifyByIDAndCode matches code against the confirmation identified by id.
// This path does not apply the activation window.
func (s *Service) VerifyByIDAndCode(ctx context.Context, id, code string, opts ...VerifyOption) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	confirmationID, err := parseConfirmationID(id)
	if err != nil {
		s.rejectCode(ctx, "", id, "invalid_id")
		return nil, ErrInvalidCode
	}

	if !s.wellFormedCode(code) {
		s.rejectCode(ctx, "", id, "malformed_code")
		return nil, ErrInvalidCode
	}

	record, err := s.store.FindByID(ctx, confirmationID)
	if err != nil {
		if IsConfirmationNotFound(err) {
			s.rejectCode(ctx, "", id, "no_match")
			return nil, ErrInvalidCode
		}
		return nil, storeError(err, "failed to find phone confirmation")
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		s.rejectCode(ctx, record.PhoneNumber, id, "no_match")
		return nil, ErrInvalidCode
	}

	return s.complete(ctx, record, opts...)
}

func (s *Service) complete(ctx context.Context, record *Confirmation, opts ...VerifyOption) (*VerifyResult, error) {
	options := verifyOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	token, err := s.codec.Issue(record.PhoneNumber)
	if err != nil {
		return nil, err
	}

	expiration := s.now().UTC().Add(s.cfg.TokenPeriodDuration())

	if err := s.hooks.EmitActivationCreated(ctx, ActivationCreated{
		PhoneNumber:     record.PhoneNumber,
		Subject:         PhoneSubject(record.PhoneNumber),
		FirstName:       record.GetFirstName(),
		ExpirationDate:  expiration,
		ActivationKey:   record.ActivationKey,
		ActivationToken: token,
		User:            options.user,
	}); err != nil {
		s.logger.Warn("activation created with hook failures", "phone_number", record.PhoneNumber, "error", err)
	}

	deleted, err := s.store.DeleteAllByPhone(ctx, record.PhoneNumber)
	if err != nil {
		return nil, storeError(err, "failed to purge phone confirmations")
	}

	s.emitActivity(ctx, ActivityEventConfirmationVerified, record.PhoneNumber, record.ID.String(), map[string]any{
		"purged": deleted,
	})

	return &VerifyResult{
		Confirmation:    record,
		ActivationToken: token,
		ExpirationDate:  expiration,
	}, nil
}

// ValidateActivationToken resolves a token issued by a successful
// verification back to its phone number.
func (s *Service) ValidateActivationToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	phone, err := s.codec.Validate(token)
	if err != nil {
		s.logger.Info("activation token rejected", "error", err)
		s.emitActivity(ctx, ActivityEventActivationRejected, "", "", map[string]any{
			"error": err.Error(),
		})
		return "", ErrInvalidToken
	}

	s.emitActivity(ctx, ActivityEventActivationRedeemed, phone, "", nil)
	return phone, nil
}

func (s *Service) wellFormedCode(code string) bool {
	return len(code) == s.cfg.CodeLength && isDigits(code)
}

func (s *Service) rejectCode(ctx context.Context, phone, id, reason string) {
	s.logger.Debug("phone confirmation rejected", "phone_number", phone, "confirmation_id", id, "reason", reason)
	s.emitActivity(ctx, ActivityEventConfirmationRejected, phone, id, map[string]any{
		"reason": reason,
	})
}

func (s *Service) emitActivity(ctx context.Context, eventType ActivityEventType, phone, confirmationID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:      eventType,
		PhoneNumber:    phone,
		ConfirmationID: confirmationID,
		Metadata:       metadata,
		OccurredAt:     s.now().UTC(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "event", string(eventType), "error", err)
	}
}

func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
