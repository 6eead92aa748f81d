package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/coffer/internal/audit"
	"github.com/PolarWolf314/coffer/internal/backend"
	"github.com/PolarWolf314/coffer/internal/configs"
	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/PolarWolf314/coffer/internal/finance"
	"github.com/PolarWolf314/coffer/internal/secrets"
	"github.com/PolarWolf314/coffer/internal/session"
	"github.com/PolarWolf314/coffer/internal/ui"
	"github.com/PolarWolf314/coffer/internal/utils"
	"github.com/briandowns/spinner"
	"github.com/shopspring/decimal"
)

// progress draws a spinner on stdout while a bulk operation runs. Under
// --verbose or --debug it stays off and the log lines speak instead.
// Start it only after every prompt has been answered, or it draws over them.
type progress struct {
	spin  *spinner.Spinner
	quiet bool
}

func startProgress(message string) *progress {
	p := &progress{
		spin: spinner.New(spinner.CharSets[14], 100*time.Millisecond,
			spinner.WithSuffix(" "+message), spinner.WithColor("cyan")),
		quiet: !verbose && !debug,
	}
	if p.quiet {
		p.spin.Start()
	} else {
		Logger.Infof("%s", message)
	}
	return p
}

// done stops the spinner and prints msg. A failed operation prints the
// friendly form of err instead, or returns err when it has none.
func (p *progress) done(msg string, err error) error {
	if p.quiet {
		p.spin.Stop()
	}
	if err != nil {
		Logger.Debugf("Command failed: %v", err)
		friendly, ok := friendlyError(err)
		if !ok {
			return Logger.ErrorfAndReturn("%v", err)
		}
		msg = friendly
	}
	if msg != "" {
		fmt.Print(ui.EnsureNewline(msg))
	}
	return nil
}

// env is everything a command needs to touch stored data.
type env struct {
	paths    configs.Paths
	config   *configs.Config
	backend  backend.Backend
	trail    *audit.Trail
	prompter *utils.TerminalPrompter
	session  *session.Session
}

// openEnv loads the config, opens the backend and starts a session.
// With unlock set, a locked store is unlocked before returning.
func openEnv(ctx context.Context, unlock bool) (*env, error) {
	paths, err := configs.ResolvePaths(configPath, dataDir)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Config file: %s, data dir: %s", paths.ConfigFile, paths.DataDir)

	config, err := configs.Ensure(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var b backend.Backend
	switch config.Storage.Driver {
	case configs.DriverMemory:
		Logger.Warnf("Using the in-memory storage driver: nothing will be saved")
		b = backend.NewMemory()
	default:
		dbPath := config.DatabasePath(paths.DataDir)
		Logger.Debugf("Opening database %s", dbPath)
		b, err = backend.OpenBolt(dbPath)
		if err != nil {
			return nil, err
		}
	}

	e := &env{
		paths:    paths,
		config:   config,
		backend:  b,
		trail:    audit.NewTrail(paths.DataDir),
		prompter: utils.NewTerminalPrompter(promptInput, nil),
	}

	e.session, err = session.Open(b, session.Options{
		Prompter:    e.prompter,
		Notifier:    ui.Notifier{},
		Logger:      Logger,
		Audit:       e.trail,
		KDF:         secrets.KDF{Iterations: config.Security.Iterations},
		Prefix:      config.Storage.Prefix,
		MaxAttempts: config.Security.MaxAttempts,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	Logger.Debugf("Session opened in state %s", e.session.State())

	if unlock && e.session.State() == session.Locked {
		if err := e.session.Unlock(ctx); err != nil {
			e.Close()
			return nil, err
		}
	}

	return e, nil
}

// Close releases the backend.
func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		Logger.Warnf("Failed to close storage: %v", err)
	}
}

// files lists where this installation keeps its state.
func (e *env) files() []string {
	files := []string{e.paths.ConfigFile}
	if bolt, ok := e.backend.(*backend.Bolt); ok {
		files = append(files, bolt.Path())
	}
	return append(files, e.trail.Path())
}

func (e *env) ledger() *finance.Ledger {
	return finance.NewLedger(e.session.Store(), finance.WithDefaultCurrency(e.config.Display.Currency))
}

// kdf returns the key derivation used for backups.
func (e *env) kdf() secrets.KDF {
	return secrets.KDF{Iterations: e.config.Security.Iterations}
}

// currency returns the display currency, falling back to the config when
// settings cannot be read.
func (e *env) currency() string {
	settings, err := e.ledger().Settings()
	if err != nil {
		Logger.Debugf("Could not read settings, using configured currency: %v", err)
		return e.config.Display.Currency
	}
	return settings.Currency
}

// notifiedBySession reports whether a session flow already told the user
// about err.
func notifiedBySession(err error) bool {
	for _, target := range []error{
		kerrors.ErrCancelled,
		kerrors.ErrWrongPassword,
		kerrors.ErrAppLocked,
		kerrors.ErrPasswordMismatch,
		kerrors.ErrEmptyPassword,
		session.ErrSweepFailed,
	} {
		if kerrors.Is(err, target) {
			return true
		}
	}
	return false
}

// friendlyError turns a known error into a message for the user. The second
// result is false for errors that should surface as-is.
func friendlyError(err error) (string, bool) {
	var unknown *configs.UnknownKeysError
	switch {
	case kerrors.As(err, &unknown):
		return ui.Error.Sprint("✗") + " Unknown settings in config file: " + strings.Join(unknown.Keys, ", ") + "\n" +
			ui.Info.Sprint("→") + " Fix or remove them and try again", true
	case kerrors.Is(err, kerrors.ErrLocked):
		return ui.Error.Sprint("✗") + " Your data is encrypted and locked", true
	case kerrors.Is(err, kerrors.ErrAppLocked):
		return ui.Error.Sprint("✗") + " Too many failed attempts. Restart coffer to try again.", true
	case kerrors.Is(err, kerrors.ErrBusy):
		return ui.Error.Sprint("✗") + " Another security operation is in progress", true
	case kerrors.Is(err, kerrors.ErrAlreadyEncrypted):
		return ui.Warning.Sprint("⚠") + " Encryption is already enabled\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("coffer passwd") + " to change the password", true
	case kerrors.Is(err, kerrors.ErrNotEncrypted):
		return ui.Warning.Sprint("⚠") + " Encryption is not enabled\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("coffer encryption enable") + " first", true
	case kerrors.Is(err, kerrors.ErrWrongPassword):
		return ui.Error.Sprint("✗") + " Incorrect password", true
	case kerrors.Is(err, kerrors.ErrCancelled):
		return ui.Warning.Sprint("⚠") + " Cancelled", true
	case kerrors.Is(err, kerrors.ErrInvalidBackup):
		return ui.Error.Sprint("✗") + " Not a coffer backup: " + err.Error(), true
	case kerrors.Is(err, kerrors.ErrDataUnavailable):
		return ui.Error.Sprint("✗") + " Some data cannot be read with the current password: " + err.Error() + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("coffer status") + " to see which record sets are affected", true
	case kerrors.Is(err, kerrors.ErrNotFound):
		return ui.Error.Sprint("✗") + " " + capitalize(err.Error()), true
	case kerrors.Is(err, kerrors.ErrQuotaExceeded):
		return ui.Error.Sprint("✗") + " Storage is full: " + err.Error(), true
	case kerrors.Is(err, kerrors.ErrValidation):
		return ui.Error.Sprint("✗") + " " + capitalize(err.Error()), true
	}
	return "", false
}

// report prints a friendly message for a known error and swallows it.
// Unknown errors are returned for cobra to print.
func report(err error) error {
	if err == nil {
		return nil
	}
	Logger.Debugf("Command failed: %v", err)
	if msg, ok := friendlyError(err); ok {
		fmt.Println(msg)
		return nil
	}
	return Logger.ErrorfAndReturn("%v", err)
}

// reportFlow is report for errors from session flows, which print their own
// notices for password problems.
func reportFlow(err error) error {
	if err != nil && notifiedBySession(err) {
		Logger.Debugf("Session flow failed: %v", err)
		return nil
	}
	return report(err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// amountValue is a pflag.Value holding a non-negative decimal.
type amountValue struct {
	set    bool
	amount decimal.Decimal
}

func (a *amountValue) String() string {
	if !a.set {
		return ""
	}
	return a.amount.String()
}

func (a *amountValue) Set(s string) error {
	if s == "" {
		*a = amountValue{}
		return nil
	}
	d, err := finance.ParseAmount(s)
	if err != nil {
		return err
	}
	a.set, a.amount = true, d
	return nil
}

func (a *amountValue) Type() string {
	return "amount"
}

// pointer returns the amount, or nil when the flag was never set.
func (a *amountValue) pointer() *decimal.Decimal {
	if !a.set {
		return nil
	}
	d := a.amount
	return &d
}

// dateValue is a pflag.Value holding a YYYY-MM-DD date.
type dateValue struct {
	date finance.Date
}

func (d *dateValue) String() string {
	if d.date.IsZero() {
		return ""
	}
	return d.date.String()
}

func (d *dateValue) Set(s string) error {
	if s == "" {
		d.date = finance.Date{}
		return nil
	}
	parsed, err := finance.ParseDate(s)
	if err != nil {
		return err
	}
	d.date = parsed
	return nil
}

func (d *dateValue) Type() string {
	return "date"
}

// pointer returns the date, or nil when the flag was never set.
func (d *dateValue) pointer() *finance.Date {
	if d.date.IsZero() {
		return nil
	}
	date := d.date
	return &date
}

// printHint prints a follow-up suggestion.
func printHint(msg string) {
	fmt.Println(ui.Info.Sprint("→") + " " + msg)
}
