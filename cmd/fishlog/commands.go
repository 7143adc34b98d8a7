package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/models"
)

type runner func(ctx context.Context, a *app) error

type command struct {
	summary string
	session bool // requires a logged-in user
	setup   func(fs *pflag.FlagSet) runner
}

var commands = map[string]command{
	"register": {summary: "create an account", setup: registerCmd},
	"login":    {summary: "sign in and remember the session", setup: loginCmd},
	"logout":   {summary: "forget the saved session", setup: logoutCmd},
	"whoami":   {summary: "show the signed-in user", session: true, setup: whoamiCmd},
	"catch":    {summary: "log fish caught", session: true, setup: catchCmd},
	"sell":     {summary: "log fish sold", session: true, setup: sellCmd},
	"list":     {summary: "list records", session: true, setup: listCmd},
	"find":     {summary: "search records", session: true, setup: findCmd},
	"edit":     {summary: "change a record", session: true, setup: editCmd},
	"delete":   {summary: "remove a record", session: true, setup: deleteCmd},
	"stock":    {summary: "show weight caught minus weight sold", session: true, setup: stockCmd},
	"export":   {summary: "write all records to a file", session: true, setup: exportCmd},
	"import":   {summary: "read records from an exported file", session: true, setup: importCmd},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("fishlog")+" <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nRun \"fishlog <command> --help\" for its flags.")
}

// readPassword takes the password from the flag or, if empty, the first line of input.
func (a *app) readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.out, "password: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func registerCmd(fs *pflag.FlagSet) runner {
	username := fs.StringP("username", "u", "", "username")
	email := fs.StringP("email", "e", "", "email address")
	pw := fs.StringP("password", "p", "", "password (read from stdin when omitted)")
	return func(ctx context.Context, a *app) error {
		plaintext, err := a.readPassword(*pw)
		if err != nil {
			return err
		}
		u, err := a.dir.Register(ctx, *username, *email, plaintext)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("registered %s", u.Username)))
		return nil
	}
}

func loginCmd(fs *pflag.FlagSet) runner {
	username := fs.StringP("username", "u", "", "username")
	pw := fs.StringP("password", "p", "", "password (read from stdin when omitted)")
	return func(ctx context.Context, a *app) error {
		plaintext, err := a.readPassword(*pw)
		if err != nil {
			return err
		}
		s, err := a.dir.Authenticate(ctx, *username, plaintext)
		if err != nil {
			return err
		}
		if err := a.saveSession(s); err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("logged in as %s until %s", s.User.Username, s.ExpiresAt.Local().Format(time.DateTime))))
		return nil
	}
}

func logoutCmd(fs *pflag.FlagSet) runner {
	return func(ctx context.Context, a *app) error {
		dropped, err := a.dropSession()
		if err != nil {
			return err
		}
		if dropped {
			fmt.Fprintln(a.out, okStyle.Render("logged out"))
		} else {
			fmt.Fprintln(a.out, "not logged in")
		}
		return nil
	}
}

func whoamiCmd(fs *pflag.FlagSet) runner {
	return func(ctx context.Context, a *app) error {
		s, err := auth.RequireSession(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s <%s>\nsession %s, expires %s\n",
			s.User.Username, s.User.Email, s.ID, s.ExpiresAt.Local().Format(time.DateTime))
		return nil
	}
}

// timestampFlag parses --at, defaulting to the current time.
func timestampFlag(fs *pflag.FlagSet) func() (time.Time, error) {
	at := fs.String("at", "", "timestamp "+models.TimestampLayout+" (default: now)")
	return func() (time.Time, error) {
		if *at == "" {
			return time.Now(), nil
		}
		return models.ParseTimestamp(*at)
	}
}

func catchCmd(fs *pflag.FlagSet) runner {
	at := timestampFlag(fs)
	weight := fs.Float64P("weight", "w", 0, "weight caught")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	return func(ctx context.Context, a *app) error {
		ts, err := at()
		if err != nil {
			return err
		}
		rec, err := a.book.AddCatch(ctx, ts, *weight, *lat, *lon)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("catch #%d logged", rec.ID)))
		return nil
	}
}

func sellCmd(fs *pflag.FlagSet) runner {
	at := timestampFlag(fs)
	weight := fs.Float64P("weight", "w", 0, "weight sold")
	revenue := fs.Float64P("revenue", "r", 0, "money received")
	return func(ctx context.Context, a *app) error {
		ts, err := at()
		if err != nil {
			return err
		}
		rec, err := a.book.AddSell(ctx, ts, *weight, *revenue)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("sell #%d logged", rec.ID)))
		return nil
	}
}

func listCmd(fs *pflag.FlagSet) runner {
	kind := fs.StringP("kind", "k", "all", "catch, sell or all")
	return func(ctx context.Context, a *app) error {
		var (
			recs []models.Record
			err  error
		)
		switch *kind {
		case "all":
			recs, err = a.book.ListAll(ctx)
		case string(models.RecordKindCatch):
			recs, err = a.book.ListCatches(ctx)
		case string(models.RecordKindSell):
			recs, err = a.book.ListSells(ctx)
		default:
			return models.Invalid("kind", "%q is not catch, sell or all", *kind)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, renderRecords(recs))
		return nil
	}
}

func findCmd(fs *pflag.FlagSet) runner {
	id := fs.Int64("id", 0, "record id")
	date := fs.String("date", "", "exact timestamp "+models.TimestampLayout)
	weight := fs.Float64("weight", 0, "exact weight")
	revenue := fs.Float64("revenue", 0, "exact revenue")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	radius := fs.Float64("radius", 0, "with --lat/--lon: match catches within this many km")
	return func(ctx context.Context, a *app) error {
		var (
			recs []models.Record
			err  error
		)
		switch {
		case fs.Changed("id"):
			var rec *models.Record
			if rec, err = a.book.FindByID(ctx, *id); err == nil {
				recs = []models.Record{*rec}
			}
		case fs.Changed("date"):
			var ts time.Time
			if ts, err = models.ParseTimestamp(*date); err == nil {
				recs, err = a.book.FindByDate(ctx, ts)
			}
		case fs.Changed("weight"):
			recs, err = a.book.FindByWeight(ctx, *weight)
		case fs.Changed("revenue"):
			recs, err = a.book.FindByRevenue(ctx, *revenue)
		case fs.Changed("lat") || fs.Changed("lon"):
			if fs.Changed("radius") {
				recs, err = a.book.FindNear(ctx, *lat, *lon, *radius)
			} else {
				recs, err = a.book.FindByLocation(ctx, *lat, *lon)
			}
		default:
			return errors.New("find needs one of --id, --date, --weight, --revenue, --lat/--lon")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, renderRecords(recs))
		return nil
	}
}

func editCmd(fs *pflag.FlagSet) runner {
	id := fs.Int64("id", 0, "record id")
	at := fs.String("at", "", "new timestamp "+models.TimestampLayout)
	weight := fs.Float64("weight", 0, "new weight")
	lat := fs.Float64("lat", 0, "new latitude (catches)")
	lon := fs.Float64("lon", 0, "new longitude (catches)")
	revenue := fs.Float64("revenue", 0, "new revenue (sells)")
	return func(ctx context.Context, a *app) error {
		rec, err := a.book.FindByID(ctx, *id)
		if err != nil {
			return err
		}
		changed := 0
		if fs.Changed("at") {
			ts, err := models.ParseTimestamp(*at)
			if err != nil {
				return err
			}
			if err := a.book.EditDate(ctx, rec, ts); err != nil {
				return err
			}
			changed++
		}
		if fs.Changed("weight") {
			if err := a.book.EditWeight(ctx, rec, *weight); err != nil {
				return err
			}
			changed++
		}
		if fs.Changed("lat") || fs.Changed("lon") {
			if rec.Catch == nil {
				return fmt.Errorf("record %d: %w", rec.ID, models.ErrWrongRecordKind)
			}
			newLat, newLon := rec.Catch.Latitude, rec.Catch.Longitude
			if fs.Changed("lat") {
				newLat = *lat
			}
			if fs.Changed("lon") {
				newLon = *lon
			}
			if err := a.book.EditLocation(ctx, rec, newLat, newLon); err != nil {
				return err
			}
			changed++
		}
		if fs.Changed("revenue") {
			if err := a.book.EditRevenue(ctx, rec, *revenue); err != nil {
				return err
			}
			changed++
		}
		if changed == 0 {
			return errors.New("nothing to change: pass --at, --weight, --lat/--lon or --revenue")
		}
		fmt.Fprintln(a.out, renderRecords([]models.Record{*rec}))
		return nil
	}
}

func deleteCmd(fs *pflag.FlagSet) runner {
	id := fs.Int64("id", 0, "record id")
	return func(ctx context.Context, a *app) error {
		if err := a.book.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("record #%d deleted", *id)))
		return nil
	}
}

func stockCmd(fs *pflag.FlagSet) runner {
	return func(ctx context.Context, a *app) error {
		total, err := a.book.TotalStock(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, renderStock(total))
		return nil
	}
}

func exportCmd(fs *pflag.FlagSet) runner {
	file := fs.StringP("file", "f", "", "destination file")
	return func(ctx context.Context, a *app) error {
		if *file == "" {
			return a.xfer.Export(ctx, a.out)
		}
		if err := a.xfer.ExportAll(ctx, *file); err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render("exported to "+*file))
		return nil
	}
}

func importCmd(fs *pflag.FlagSet) runner {
	file := fs.StringP("file", "f", "", "file written by export")
	return func(ctx context.Context, a *app) error {
		if *file == "" {
			return models.Invalid("file", "must be set")
		}
		n, err := a.xfer.ImportAll(ctx, *file)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf("imported %d records", n)))
		return nil
	}
}
