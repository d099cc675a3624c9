// Package cli реализует консоль оператора printerctl: вход, навигацию по ролям,
// справочник продукции, ввод заказов и панель заказов.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/catalog"
	"github.com/mmeshcher/labelprint/internal/config"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/orderstore"
	"github.com/mmeshcher/labelprint/internal/printerapi"
	"github.com/mmeshcher/labelprint/internal/session"
)

// orderBackend объединяет хранилище заказов и опрос изменений по ревизии.
type orderBackend interface {
	orderstore.Store
	orderstore.Poller
}

type app struct {
	cfg      *config.Console
	logger   *zap.Logger
	sessions *session.FileStore
	calc     *expiry.Calculator
	now      func() time.Time
}

// NewRootCommand собирает корневую команду printerctl. Значения cfg служат
// умолчаниями для флагов; явно заданные флаги имеют приоритет.
func NewRootCommand(cfg *config.Console, logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		calc:   expiry.NewCalculator(logger),
		now:    time.Now,
	}

	root := &cobra.Command{
		Use:           "printerctl",
		Short:         "Label printing operator console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return apperr.Wrap(apperr.KindValidation, err.Error(), err)
			}
			a.sessions = session.NewFileStore(a.cfg.SessionFile, session.DefaultTTL)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "label printing API base URL")
	flags.StringVar(&cfg.SessionFile, "session-file", cfg.SessionFile, "path to the session file")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "order store: remote or mirror")
	flags.StringVar(&cfg.OrdersFile, "orders-file", cfg.OrdersFile, "path to the local order mirror")
	flags.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "order polling interval")

	root.AddCommand(
		a.newSignInCmd(),
		a.newSignOutCmd(),
		a.newWhoAmICmd(),
		a.newNavCmd(),
		a.newProfileCmd(),
		a.newUsersCmd(),
		a.newProductCmd(),
		a.newOrderCmd(),
		a.newDashboardCmd(),
		a.newWatchCmd(),
	)

	return root
}

// Execute запускает консоль с конфигурацией из окружения.
func Execute() error {
	cfg, err := config.ParseConsole()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(cfg, logger).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func (a *app) client() *printerapi.Client {
	return printerapi.NewClient(a.cfg.APIURL)
}

// errNotSignedIn возвращают команды, требующие входа, если сессии нет.
var errNotSignedIn = apperr.New(apperr.KindAuth, "not signed in, run printerctl signin")

func (a *app) loadSession() (*session.Session, error) {
	sess, err := a.sessions.Load()
	if errors.Is(err, session.ErrNoSession) {
		return nil, errNotSignedIn
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// withSession оборачивает обработчик команды: загружает сессию и при ошибке
// аутентификации от сервера удаляет её.
func (a *app) withSession(fn func(cmd *cobra.Command, args []string, sess *session.Session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess, err := a.loadSession()
		if err != nil {
			return err
		}
		return a.handle(fn(cmd, args, sess))
	}
}

func (a *app) handle(err error) error {
	if err == nil || !printerapi.IsAuthError(err) {
		return err
	}
	if clearErr := a.sessions.Clear(); clearErr != nil {
		a.logger.Warn("failed to clear session", zap.Error(clearErr))
	}
	return apperr.Wrap(apperr.KindAuth, "session is no longer valid, sign in again", err)
}

func requireElevated(sess *session.Session, action string) error {
	if !sess.IsElevated() {
		return apperr.Forbidden("only admin may " + action)
	}
	return nil
}

// loadCatalog загружает справочник продукции на время команды. Ошибка загрузки
// не мешает работе: черновик просто не найдёт продукт.
func (a *app) loadCatalog(ctx context.Context) *catalog.Catalog {
	codes, err := a.client().ListProductCodes(ctx)
	if err != nil {
		a.logger.Warn("failed to load product codes", zap.Error(err))
		return catalog.New(nil)
	}
	return catalog.New(codes)
}

// orderStore выбирает хранилище заказов по настройке консоли.
func (a *app) orderStore(ctx context.Context, sess *session.Session) orderBackend {
	if a.cfg.Store == config.StoreMirror {
		m := orderstore.NewMirror(a.cfg.OrdersFile, a.calc)
		m.SetCatalog(a.loadCatalog(ctx))
		return m
	}
	return orderstore.NewRemote(a.client().WithToken(sess.Token))
}
