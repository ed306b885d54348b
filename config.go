package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	blobDir        string
	cookieSecret   string
	dbDSN          string
	dbPath         string
	dragTimeout    time.Duration
	fieldImage     string
	maxUpload      int64
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	logger zerolog.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout (must be positive): %s", c.sessionTimeout)
	}
	if c.dragTimeout <= 0 {
		return fmt.Errorf("invalid drag timeout (must be positive): %s", c.dragTimeout)
	}
	if c.maxUpload <= 0 {
		return fmt.Errorf("invalid max upload size (must be positive): %d", c.maxUpload)
	}
	if c.dbDSN != "" && c.dbPath != "" {
		return errors.New("--db-dsn and --db-path are mutually exclusive")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PITCHSIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pitchside",
		Short:         "A shared soccer tactics board and photo wall, served from a single binary.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PITCHSIDE_BIND)")
	fs.StringVar(&cfg.blobDir, "blob-dir", "blobs", "directory to store uploaded images in (env: PITCHSIDE_BLOB_DIR)")
	fs.StringVar(&cfg.cookieSecret, "cookie-secret", "", "key used to sign identity cookies; random per process if unset (env: PITCHSIDE_COOKIE_SECRET)")
	fs.StringVar(&cfg.dbDSN, "db-dsn", "", "postgres connection string for the photo store (env: PITCHSIDE_DB_DSN)")
	fs.StringVar(&cfg.dbPath, "db-path", "", "sqlite database file for the photo store; in-memory if unset (env: PITCHSIDE_DB_PATH)")
	fs.DurationVar(&cfg.dragTimeout, "drag-timeout", 30*time.Second, "time before an abandoned marker drag is released (env: PITCHSIDE_DRAG_TIMEOUT)")
	fs.StringVar(&cfg.fieldImage, "field-image", "", "optional background image for the tactics board (env: PITCHSIDE_FIELD_IMAGE)")
	fs.Int64Var(&cfg.maxUpload, "max-upload", 10<<20, "largest accepted photo upload, in bytes (env: PITCHSIDE_MAX_UPLOAD)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PITCHSIDE_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PITCHSIDE_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PITCHSIDE_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle tactics boards are closed (env: PITCHSIDE_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PITCHSIDE_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PITCHSIDE_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PITCHSIDE_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PITCHSIDE_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pitchside v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
