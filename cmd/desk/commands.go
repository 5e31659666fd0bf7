package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/service"
	"github.com/chrisdamba/excursiondesk/pkg/health"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
	"github.com/spf13/pflag"
)

var (
	errUsage            = errors.New("usage")
	errNotAuthenticated = errors.New("not authenticated")
)

// command is one desk subcommand. Public commands skip the session check.
type command struct {
	name    string
	usage   string
	summary string
	public  bool
	flags   func(fs *pflag.FlagSet)
	run     func(ctx context.Context, args []string) error
}

func (a *App) commands() []*command {
	return []*command{
		a.loginCommand(),
		a.statusCommand(),
		a.draftsCommand(),
		a.bookCommand(),
		a.previewCommand(),
		a.sendCommand(),
		a.cancelCommand(),
		a.deleteCommand(),
		a.travelerCommand(),
	}
}

func (a *App) lookup(name string) *command {
	for _, cmd := range a.commands() {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

func (a *App) printUsage() {
	fmt.Fprintln(a.out, "Usage: desk [--config FILE] <command> [flags] [args]")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Commands:")
	tw := tabwriter.NewWriter(a.out, 2, 0, 3, ' ', 0)
	for _, cmd := range a.commands() {
		fmt.Fprintf(tw, "  %s\t%s\n", cmd.usage, cmd.summary)
	}
	tw.Flush()
}

// describe renders err for the operator. Backend errors show the server's
// message instead of the request line.
func describe(err error) string {
	var re *salesapi.RequestError
	var ne *salesapi.NetworkError
	if errors.As(err, &re) || errors.As(err, &ne) {
		return salesapi.Message(err)
	}
	return err.Error()
}

func (a *App) loginCommand() *command {
	var username, password string
	return &command{
		name:    "login",
		usage:   "login --user NAME",
		summary: "sign in to the back office (password from --password or $DESK_PASSWORD)",
		public:  true,
		flags: func(fs *pflag.FlagSet) {
			fs.StringVarP(&username, "user", "u", "", "back office user name")
			fs.StringVarP(&password, "password", "p", "", "password")
		},
		run: func(ctx context.Context, args []string) error {
			if password == "" {
				password = os.Getenv("DESK_PASSWORD")
			}
			if username == "" || password == "" {
				return fmt.Errorf("%w: login needs --user and a password", errUsage)
			}
			if err := a.guard.Login(ctx, username, password); err != nil {
				return err
			}
			if a.store != nil {
				if err := a.session.Persist(ctx, a.store); err != nil {
					a.logger.Warn("could not persist session", "error", err)
				}
			}
			fmt.Fprintf(a.out, "signed in as %s\n", username)
			return nil
		},
	}
}

func (a *App) statusCommand() *command {
	var snapshots int
	return &command{
		name:    "status",
		usage:   "status",
		summary: "check the session, the back office and the optional stores",
		public:  true,
		flags: func(fs *pflag.FlagSet) {
			fs.IntVar(&snapshots, "snapshots", 0, "also list the N most recent draft snapshots")
		},
		run: func(ctx context.Context, args []string) error {
			probes := []health.Probe{{
				Name: "session",
				Check: func(ctx context.Context) error {
					if !a.guard.IsAuthenticated(ctx) {
						return errNotAuthenticated
					}
					return nil
				},
			}}
			if a.redis != nil {
				probes = append(probes, health.Probe{
					Name:  "redis",
					Check: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
				})
			}
			if a.db != nil {
				probes = append(probes, health.Probe{Name: "postgres", Check: a.db.Ping})
			}

			report := health.Collect(ctx, a.config.SalesAPI.BaseURL(), probes...)
			if err := report.Write(a.out); err != nil {
				return err
			}

			if snapshots > 0 && a.snapshots != nil {
				infos, err := a.snapshots.ListSnapshots(ctx, snapshots)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "FAMILY\tROWS\tFETCHED")
				for _, info := range infos {
					fmt.Fprintf(tw, "%d\t%d\t%s\n", info.FamilyID, info.Rows, info.FetchedAt.Format("2006-01-02 15:04"))
				}
				tw.Flush()
			}
			return nil
		},
	}
}

func (a *App) draftsCommand() *command {
	return &command{
		name:    "drafts",
		usage:   "drafts FAMILY",
		summary: "list the bookings of a family",
		run: func(ctx context.Context, args []string) error {
			familyID, err := familyArg(args)
			if err != nil {
				return err
			}
			book, err := a.loadDraftBook(ctx, familyID)
			if err != nil {
				return err
			}
			a.printDrafts(book)
			return nil
		},
	}
}

func (a *App) bookCommand() *command {
	var (
		familyID, excursionID, companyID int
		title, date, lang, room          string
		travelers                        []int
	)
	return &command{
		name:    "book",
		usage:   "book --family ID --excursion ID --date YYYY-MM-DD --travelers IDS --company ID",
		summary: "price and create a draft booking",
		flags: func(fs *pflag.FlagSet) {
			fs.IntVar(&familyID, "family", 0, "family id")
			fs.IntVar(&excursionID, "excursion", 0, "excursion id")
			fs.StringVar(&title, "title", "", "excursion title, used to tell which traveler fields are required")
			fs.StringVar(&date, "date", "", "excursion date")
			fs.IntSliceVar(&travelers, "travelers", nil, "comma separated traveler ids")
			fs.IntVar(&companyID, "company", 0, "operating company id")
			fs.StringVar(&lang, "lang", "ru", "excursion language")
			fs.StringVar(&room, "room", "", "room number")
		},
		run: func(ctx context.Context, args []string) error {
			if familyID == 0 || excursionID == 0 || date == "" || len(travelers) == 0 {
				return fmt.Errorf("%w: book needs --family, --excursion, --date and --travelers", errUsage)
			}

			family, err := a.catalog.GetFamily(ctx, familyID)
			if err != nil {
				return err
			}

			editor := service.NewPartyEditor(a.bookings, *family, a.logger)
			missing := editor.MissingFields(title, travelers)
			for _, id := range travelers {
				if fields, ok := missing[id]; ok {
					fmt.Fprintf(a.out, "warning: traveler %d is missing %s\n", id, strings.Join(fields, ", "))
				}
			}

			watcher := service.NewQuoteWatcher(a.catalog, a.logger)
			defer watcher.Stop()
			req := service.QuoteRequestFor(*family, excursionID, date, travelers)
			req.Lang = lang
			priced, err := watcher.Watch(ctx, req)
			if err != nil {
				return err
			}
			if !priced.Quote.OK {
				fmt.Fprintln(a.out, "warning: no price for this selection")
			}

			draft := service.BuildDraft(*family, service.Selection{
				ExcursionID:    excursionID,
				ExcursionTitle: title,
				Date:           date,
				Travelers:      travelers,
				CompanyID:      companyID,
				Language:       lang,
				RoomNumber:     room,
			}, priced.Pickup, priced.Quote)

			book, err := a.loadDraftBook(ctx, family.ID)
			if err != nil {
				return err
			}
			created, err := book.Create(ctx, draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created booking %d %s, gross %s\n", created.ID, created.BookingCode, created.GrossTotal)
			a.printDrafts(book)
			return nil
		},
	}
}

func (a *App) previewCommand() *command {
	return &command{
		name:    "preview",
		usage:   "preview FAMILY",
		summary: "show what a send would include",
		run: func(ctx context.Context, args []string) error {
			familyID, err := familyArg(args)
			if err != nil {
				return err
			}
			book := a.newDraftBook(familyID)
			preview, err := book.OpenPreview(ctx)
			if err != nil {
				return err
			}
			a.printPreview(preview, book.Selected())
			return nil
		},
	}
}

func (a *App) sendCommand() *command {
	var ids []int
	return &command{
		name:    "send",
		usage:   "send FAMILY [--ids IDS]",
		summary: "send the sendable rows of a family, or only --ids",
		flags: func(fs *pflag.FlagSet) {
			fs.IntSliceVar(&ids, "ids", nil, "send only these booking ids")
		},
		run: func(ctx context.Context, args []string) error {
			familyID, err := familyArg(args)
			if err != nil {
				return err
			}
			book, err := a.loadDraftBook(ctx, familyID)
			if err != nil {
				return err
			}
			if _, err := book.OpenPreview(ctx); err != nil {
				return err
			}
			if len(ids) > 0 {
				book.SetEditMode(true)
				for _, id := range book.Selected() {
					if !slices.Contains(ids, id) {
						book.Toggle(id)
					}
				}
				for _, id := range ids {
					if !slices.Contains(book.Selected(), id) {
						book.Toggle(id)
					}
				}
			}

			result, err := book.SendBatch(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "sent %d bookings", result.Sent())
			if result.BatchCode != "" {
				fmt.Fprintf(a.out, " in batch %s", result.BatchCode)
			}
			fmt.Fprintln(a.out)
			a.printDrafts(book)
			return nil
		},
	}
}

func (a *App) cancelCommand() *command {
	var reason string
	return &command{
		name:    "cancel",
		usage:   "cancel BOOKING... [--reason TEXT]",
		summary: "cancel bookings that have left DRAFT",
		flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&reason, "reason", "", "cancellation reason, single booking only")
		},
		run: func(ctx context.Context, args []string) error {
			book, ids, err := a.bookFor(ctx, args)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				cancelled, err := book.Cancel(ctx, ids[0], reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "booking %d is %s\n", cancelled.ID, cancelled.EffectiveStatus())
			} else {
				for _, id := range ids {
					book.Toggle(id)
				}
				result, err := book.CancelSelected(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "cancelled %d bookings\n", max(result.Cancelled, result.Updated, result.Count))
			}
			a.printDrafts(book)
			return nil
		},
	}
}

func (a *App) deleteCommand() *command {
	return &command{
		name:    "delete",
		usage:   "delete BOOKING...",
		summary: "delete DRAFT bookings",
		run: func(ctx context.Context, args []string) error {
			book, ids, err := a.bookFor(ctx, args)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				if err := book.Delete(ctx, ids[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted booking %d\n", ids[0])
			} else {
				for _, id := range ids {
					book.Toggle(id)
				}
				n, err := book.DeleteSelected(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "deleted %d bookings\n", n)
			}
			a.printDrafts(book)
			return nil
		},
	}
}

func (a *App) travelerCommand() *command {
	return &command{
		name:    "traveler",
		usage:   "traveler FAMILY TRAVELER FIELD VALUE",
		summary: "edit one field of a traveler",
		run: func(ctx context.Context, args []string) error {
			if len(args) != 4 {
				return fmt.Errorf("%w: traveler needs FAMILY TRAVELER FIELD VALUE", errUsage)
			}
			ids, err := parseIDs(args[:2])
			if err != nil {
				return err
			}
			family, err := a.catalog.GetFamily(ctx, ids[0])
			if err != nil {
				return err
			}
			editor := service.NewPartyEditor(a.bookings, *family, a.logger)
			notice, err := editor.SetField(ctx, ids[1], args[2], args[3])
			if err != nil {
				return err
			}
			if notice != nil {
				fmt.Fprintf(a.out, "warning: %s not saved: %s\n", notice.Field, notice.Message)
				return nil
			}
			fmt.Fprintf(a.out, "traveler %d %s saved\n", ids[1], args[2])
			return nil
		},
	}
}

func (a *App) newDraftBook(familyID int) *service.DraftBook {
	opts := []service.DraftOption{
		service.WithLogger(a.logger),
		service.WithValidator(a.validator),
	}
	if a.snapshots != nil {
		opts = append(opts, service.WithSnapshotStore(a.snapshots))
	}
	return service.NewDraftBook(familyID, a.bookings, opts...)
}

// loadDraftBook fetches the family list, falling back to the last snapshot
// when the back office cannot be reached.
func (a *App) loadDraftBook(ctx context.Context, familyID int) (*service.DraftBook, error) {
	book := a.newDraftBook(familyID)
	err := book.Refresh(ctx)
	if err == nil {
		return book, nil
	}
	restored, rerr := book.Restore(ctx)
	if rerr != nil {
		a.logger.Warn("snapshot restore failed", "family_id", familyID, "error", rerr)
	}
	if !restored {
		return nil, err
	}
	a.logger.Warn("showing saved snapshot", "family_id", familyID, "error", err)
	return book, nil
}

// bookFor loads the draft list of the family the first booking belongs to.
func (a *App) bookFor(ctx context.Context, args []string) (*service.DraftBook, []int, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one booking id is required", errUsage)
	}
	ids, err := parseIDs(args)
	if err != nil {
		return nil, nil, err
	}
	first, err := a.bookings.GetBooking(ctx, ids[0])
	if err != nil {
		return nil, nil, err
	}
	if first.FamilyID == nil {
		return nil, nil, fmt.Errorf("booking %d has no family", ids[0])
	}
	book, err := a.loadDraftBook(ctx, *first.FamilyID)
	if err != nil {
		return nil, nil, err
	}
	return book, ids, nil
}

func (a *App) printDrafts(book *service.DraftBook) {
	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tSTATUS\tDATE\tEXCURSION\tPAX\tGROSS")
	for _, d := range book.Drafts() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d+%d\t%s\n",
			d.ID, d.BookingCode, d.EffectiveStatus(), d.Date, excursionName(d), d.Adults, d.Children, d.GrossTotal)
	}
	tw.Flush()

	totals := book.Totals()
	fmt.Fprintf(a.out, "active %s, cancelled %s\n", totals.Active, totals.Cancelled)
	if book.Stale() {
		fmt.Fprintf(a.out, "stale: last fetched %s\n", book.FetchedAt().Format("2006-01-02 15:04"))
	}
}

func (a *App) printPreview(preview *models.BatchPreview, selected []int) {
	fmt.Fprintf(a.out, "%d bookings, total %s\n", preview.Count, preview.Total)
	tw := tabwriter.NewWriter(a.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tSTATUS\tDATE\tEXCURSION\tGROSS")
	for _, it := range preview.Items {
		mark := " "
		if slices.Contains(selected, it.ID) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", mark, it.ID, it.EffectiveStatus(), it.Date, excursionName(it), it.GrossTotal)
	}
	tw.Flush()
}

func excursionName(b models.Booking) string {
	if b.ExcursionTitle != "" {
		return b.ExcursionTitle
	}
	return "#" + strconv.Itoa(b.ExcursionID)
}

func familyArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: a family id is required", errUsage)
	}
	ids, err := parseIDs(args)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q is not an id", errUsage, arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
