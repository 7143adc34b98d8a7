// Command fishlog keeps a personal log of fish caught and sold.
//
//	fishlog <command> [flags]
//
// Run "fishlog help" for the list of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/internal/config"
	"fishingCatchesLogger/internal/db"
	"fishingCatchesLogger/internal/directory"
	"fishingCatchesLogger/internal/logbook"
	"fishingCatchesLogger/internal/logger"
	"fishingCatchesLogger/internal/transfer"
	"fishingCatchesLogger/models"
	"fishingCatchesLogger/repository"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app is the wiring shared by all commands.
type app struct {
	cfg  *config.Config
	log  zerolog.Logger
	dir  *directory.Directory
	book *logbook.Logbook
	xfer *transfer.Transfer
	in   io.Reader
	out  io.Writer
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(out)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n", args[0])
		usage(errOut)
		return 2
	}

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.String("db", "", "database file (default: per-user data directory)")
	fs.String("log-level", "", "log level: debug, info, warn, error, off")
	exec := cmd.setup(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	v := viper.New()
	_ = v.BindPFlag("db.path", fs.Lookup("db"))
	_ = v.BindPFlag("log.level", fs.Lookup("log-level"))
	cfg, err := config.LoadFrom(v)
	if err != nil {
		fmt.Fprintln(errOut, errorStyle.Render("config: "+err.Error()))
		return 1
	}

	log, closer, err := logger.New(cfg.Log.Level, cfg.Log.Path)
	if err != nil {
		fmt.Fprintln(errOut, errorStyle.Render("logger: "+err.Error()))
		return 1
	}
	defer closer.Close()
	log.Debug().Str("config", cfg.String()).Str("command", args[0]).Msg("starting")

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Database.Path).Msg("open database")
		fmt.Fprintln(errOut, errorStyle.Render(err.Error()))
		return 1
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	book := logbook.New(repository.NewRecordRepository(d), log)
	a := &app{
		cfg:  cfg,
		log:  log,
		dir:  directory.New(repository.NewUserRepository(d), auth.NewSigner(cfg.Session.Secret, cfg.Session.TTL), log),
		book: book,
		xfer: transfer.New(book, log),
		in:   in,
		out:  out,
	}
	if cmd.session {
		if ctx, err = a.resume(ctx); err != nil {
			fmt.Fprintln(errOut, errorStyle.Render(describe(err)))
			return 1
		}
	}
	if err := exec(ctx, a); err != nil {
		fmt.Fprintln(errOut, errorStyle.Render(describe(err)))
		return 1
	}
	return 0
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	switch {
	case models.IsCredentialError(err):
		return "username or password is incorrect"
	case errors.Is(err, models.ErrNoSession), errors.Is(err, auth.ErrInvalidToken):
		return "not logged in (run: fishlog login)"
	case errors.Is(err, models.ErrUsernameTaken):
		return "that username is already taken"
	case errors.Is(err, models.ErrRecordNotFound):
		return "no such record"
	case errors.Is(err, models.ErrWrongRecordKind):
		return "that field does not apply to this kind of record"
	default:
		return err.Error()
	}
}
