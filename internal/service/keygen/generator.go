package keygen

import (
	"context"
	"regexp"
	"time"

	"github.com/oshokin/roku-cli/internal/domain/signing"
	"github.com/oshokin/roku-cli/internal/logger"
	"github.com/oshokin/roku-cli/internal/remote/shell"
)

const (
	// GenkeyCommand is the only command issued to the device shell.
	GenkeyCommand = "genkey"

	// DefaultSettleDelay is the pause after connect and after genkey.
	DefaultSettleDelay = 3 * time.Second
)

var (
	passwordPattern = regexp.MustCompile(`Password: ([^\r\n]*)`)
	devIDPattern    = regexp.MustCompile(`DevID: ([^\r\n]*)`)
)

// Generator drives the genkey exchange.
type Generator struct {
	// settleDelay is applied after connect and after the command.
	settleDelay time.Duration
	// sleep pauses for the settle delay.
	sleep func(time.Duration)
	// shellOptions are passed to every shell.Connect call.
	shellOptions []shell.Option
}

// Option configures a Generator.
type Option func(*Generator)

// WithSettleDelay sets the pause between protocol steps. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d >= 0 {
			g.settleDelay = d
		}
	}
}

// WithShellOptions appends options for the underlying remote shell session.
func WithShellOptions(opts ...shell.Option) Option {
	return func(g *Generator) {
		g.shellOptions = append(g.shellOptions, opts...)
	}
}

// New builds a Generator with the default settle delay.
func New(opts ...Option) *Generator {
	g := &Generator{
		settleDelay: DefaultSettleDelay,
		sleep:       time.Sleep,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate asks the device at host for a fresh developer identity.
// The session is closed before the response is parsed and destroyed on any
// transport failure; a partial credential is never returned.
func (g *Generator) Generate(ctx context.Context, host string) (signing.Credential, error) {
	ctx = logger.WithKV(logger.WithName(ctx, "keygen"), "host", host)

	logger.Info(ctx, "Connecting to device shell")

	session, err := shell.Connect(ctx, host, g.shellOptions...)
	if err != nil {
		return signing.Credential{}, &signing.KeyGenerationError{Host: host, Err: err}
	}

	g.settle(ctx)

	logger.Info(ctx, "Requesting a new developer key")

	response, err := session.Execute(ctx, GenkeyCommand)
	if err != nil {
		session.Destroy()

		return signing.Credential{}, &signing.KeyGenerationError{Host: host, Err: err}
	}

	g.settle(ctx)

	if err = session.Close(); err != nil {
		session.Destroy()

		return signing.Credential{}, &signing.KeyGenerationError{Host: host, Err: err}
	}

	credential, ok := ParseCredential(response)
	if !ok {
		logger.DebugKV(ctx, "Unexpected genkey response", "bytes", len(response))

		return signing.Credential{}, &signing.KeyGenerationError{Host: host, Err: signing.ErrCredentialsNotFound}
	}

	logger.InfoKV(ctx, "Developer key generated", "dev_id", credential.DevID)

	return credential, nil
}

func (g *Generator) settle(ctx context.Context) {
	if g.settleDelay <= 0 {
		return
	}

	logger.DebugKV(ctx, "Waiting for the device to settle", "delay", g.settleDelay)
	g.sleep(g.settleDelay)
}

// ParseCredential extracts the DevID and Password lines from genkey output.
// A value is the rest of its line, blanks included. Other output is ignored. It reports false unless both values are non-empty.
func ParseCredential(response string) (signing.Credential, bool) {
	credential := signing.Credential{
		DevID:    extract(devIDPattern, response),
		Password: extract(passwordPattern, response),
	}

	if !credential.IsComplete() {
		return signing.Credential{}, false
	}

	return credential, true
}

func extract(pattern *regexp.Regexp, response string) string {
	matches := pattern.FindStringSubmatch(response)
	if matches == nil {
		return ""
	}

	return matches[1]
}
