package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	phoneconfirm "github.com/goliatone/go-phoneconfirm"
	"github.com/goliatone/go-phoneconfirm/activitymap"
	"github.com/goliatone/go-phoneconfirm/repository"
	"github.com/goliatone/go-print"
)

func main() {
	var (
		phone     = flag.String("phone", "+15551234567", "phone number to confirm")
		firstName = flag.String("first-name", "", "optional first name")
		secret    = flag.String("secret", os.Getenv("PHONECONFIRM_SECRET_KEY"), "token signing secret")
		dsn       = flag.String("dsn", "file:phoneconfirm?mode=memory&cache=shared", "database dsn")
		driver    = flag.String("driver", repository.DriverSQLite, "database driver: sqlite or postgres")
		region    = flag.String("region", "US", "default phone region")
		silent    = flag.String("silent-prefix", "", "skip SMS delivery for numbers with this prefix")
	)
	flag.Parse()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("phoneconfirm"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, lgr, options{
		phone:        *phone,
		firstName:    *firstName,
		secret:       *secret,
		region:       *region,
		silentPrefix: *silent,
		db: repository.Config{
			Driver: *driver,
			DSN:    *dsn,
		},
	}); err != nil {
		lgr.Error("phoneconfirm failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	phone        string
	firstName    string
	secret       string
	region       string
	silentPrefix string
	db           repository.Config
}

func run(ctx context.Context, lgr *glog.BaseLogger, opts options) error {
	if opts.secret == "" {
		opts.secret = "insecure-demo-secret"
		lgr.Warn("using demo secret, set PHONECONFIRM_SECRET_KEY")
	}

	loaded, err := phoneconfirm.LoadConfig(map[string]any{
		"secret_key":     opts.secret,
		"default_region": opts.region,
	})
	if err != nil {
		return err
	}

	runtime := phoneconfirm.Config{}
	if opts.silentPrefix != "" {
		runtime.SilentFilter = func(phoneNumber string) bool {
			return strings.HasPrefix(phoneNumber, opts.silentPrefix)
		}
	}

	cfg, err := phoneconfirm.ResolveConfig(phoneconfirm.DefaultConfig(), loaded, runtime)
	if err != nil {
		return err
	}

	db, dialect, err := repository.Open(opts.db)
	if err != nil {
		return err
	}

	client, err := repository.NewClient(ctx, opts.db, db, dialect)
	if err != nil {
		return err
	}
	defer client.Close()

	manager := repository.NewManager(client)
	manager.MustValidate()

	var lastCode string
	sender := phoneconfirm.SMSSenderFunc(func(_ context.Context, from string, to []string, body string) error {
		lgr.GetLogger("sms").Info("sms sent", "from", from, "to", strings.Join(to, ","), "body", body)
		return nil
	})

	hooks := phoneconfirm.NewHooks().WithLoggerProvider(lgr)
	sms := phoneconfirm.NewSMSDeliveryHandler(sender, cfg).WithLoggerProvider(lgr).WithHooks(hooks)
	hooks.OnConfirmationIssued("sms", sms.Handle)
	hooks.OnConfirmationSMSSent("log", func(_ context.Context, event phoneconfirm.ConfirmationSMSSent) error {
		lgr.GetLogger("sms").Debug("confirmation sms sent", "confirmation_id", event.ConfirmationID)
		return nil
	})
	hooks.OnConfirmationIssued("capture", func(_ context.Context, event phoneconfirm.ConfirmationIssued) error {
		lastCode = event.Code
		return nil
	})
	hooks.OnActivationCreated("log", func(_ context.Context, event phoneconfirm.ActivationCreated) error {
		lgr.GetLogger("activation").Info("activation created",
			"phone_number", event.PhoneNumber,
			"subject", event.Subject,
			"expires", event.ExpirationDate,
		)
		return nil
	})

	svc, err := phoneconfirm.NewService(cfg,
		phoneconfirm.WithStore(manager.Confirmations()),
		phoneconfirm.WithHooks(hooks),
		phoneconfirm.WithLoggerProvider(lgr),
		phoneconfirm.WithActivitySink(activitymap.Sink(func(record activitymap.Normalized) error {
			lgr.GetLogger("activity").Debug("activity", "record", print.MaybePrettyJSON(record))
			return nil
		})),
	)
	if err != nil {
		return err
	}

	request := phoneconfirm.RequestConfirmationMessage{
		PhoneNumber: opts.phone,
		OnResponse: func(resp *phoneconfirm.RequestConfirmationResponse) {
			fmt.Println(print.MaybePrettyJSON(resp.Confirmation))
		},
	}
	if opts.firstName != "" {
		request.FirstName = &opts.firstName
	}

	if err := phoneconfirm.NewRequestConfirmationHandler(svc).Execute(ctx, request); err != nil {
		return err
	}

	var token string
	if err := phoneconfirm.NewConfirmCodeHandler(svc).Execute(ctx, phoneconfirm.ConfirmCodeMessage{
		PhoneNumber: opts.phone,
		Code:        lastCode,
		OnResponse: func(resp *phoneconfirm.ConfirmResponse) {
			token = resp.ActivationToken
			fmt.Println(print.MaybePrettyJSON(map[string]any{
				"phone_number":     resp.PhoneNumber,
				"activation_token": resp.ActivationToken,
				"expiration_date":  resp.ExpirationDate,
			}))
		},
	}); err != nil {
		return err
	}

	return phoneconfirm.NewResolveActivationTokenHandler(svc).Execute(ctx, phoneconfirm.ResolveActivationTokenMessage{
		ActivationToken: token,
		OnResponse: func(resp *phoneconfirm.ResolveActivationTokenResponse) {
			fmt.Println(print.MaybePrettyJSON(resp))
		},
	})
}
