package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gadget-hub/config"
	"gadget-hub/internal/client"
	"gadget-hub/internal/guard"
	"gadget-hub/internal/models"
	"gadget-hub/internal/session"
	"gadget-hub/internal/util"
)

// hubctl is a terminal client for the gadget hub. It keeps the session in
// the local session store and talks to the hub through the client SDK.

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	sessions := session.NewStore(cfg.Client.SessionPath)
	hub := client.New(cfg.Client.BaseURL, cfg.Client.RequestTimeout, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := &app{sessions: sessions, hub: hub}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "login":
		err = app.login(ctx, args[1:])
	case "logout":
		sessions.Clear()
		fmt.Println("Signed out")
	case "whoami":
		err = app.whoami(ctx)
	case "profile":
		err = app.profile(ctx, args[1:])
	case "list":
		err = app.list(ctx, args[1:])
	case "show":
		err = app.show(ctx, args[1:])
	case "export":
		err = app.export(ctx, args[1:])
	case "import":
		err = app.importQuantity(ctx, args[1:])
	case "my-imports":
		err = app.myImports(ctx)
	case "remove-import":
		err = app.removeImport(ctx, args[1:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: hubctl <command> [flags]

Commands:
  login -email <email> -password <password>
  logout
  whoami
  profile -name <display name> [-photo <url>]
  list [-filter <text>]
  show <listing-id>
  export -name <name> -image <url> -origin <country> [-price <p>] [-rating <r>] [-qty <n>]
  import <listing-id> -qty <n>
  my-imports
  remove-import <listing-id>`)
}

type app struct {
	sessions *session.Store
	hub      *client.Client
}

// storeIdentity adapts the session store into the guard's provider
// interface. The report fires once with whatever the store holds.
type storeIdentity struct {
	sessions *session.Store
}

func (p *storeIdentity) OnIdentity(callback func(*models.Session)) (cancel func()) {
	go callback(p.sessions.Load())
	return func() {}
}

// requireSession resolves the access guard and returns the session, or an
// error directing the caller to sign in.
func (a *app) requireSession(ctx context.Context) (*models.Session, error) {
	g := guard.New(&storeIdentity{sessions: a.sessions}, nil, "hubctl login")

	decision, err := g.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if decision.State != guard.StateAuthorized {
		return nil, fmt.Errorf("not signed in, run: %s", decision.RedirectTo)
	}
	return decision.Session, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	sess, err := a.hub.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.sessions.Save(sess); err != nil {
		return err
	}

	fmt.Printf("Signed in as %s\n", sess.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", sess.Email, sess.UserID)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	photo := fs.String("photo", "", "avatar URL")
	fs.Parse(args)

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	updated, err := a.hub.UpdateProfile(ctx, sess, *name, *photo)
	if err != nil {
		return err
	}
	if err := a.sessions.Save(updated); err != nil {
		return err
	}

	fmt.Printf("Profile updated for %s\n", updated.Email)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	filter := fs.String("filter", "", "substring filter over name, origin and price")
	fs.Parse(args)

	listings, err := a.hub.ListAll(ctx, *filter)
	if err != nil {
		return err
	}

	for _, l := range listings {
		fmt.Printf("%s  %-30s  %-15s  $%.2f  stock=%d\n",
			l.ID, l.Name, l.OriginCountry, l.Price, l.AvailableQuantity)
	}
	fmt.Printf("%d listings\n", len(listings))
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("show requires a listing ID")
	}

	listing, err := a.hub.GetOne(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:      %s\n", listing.Name)
	fmt.Printf("Origin:    %s\n", listing.OriginCountry)
	fmt.Printf("Price:     $%.2f\n", listing.Price)
	fmt.Printf("Rating:    %.1f\n", listing.Rating)
	fmt.Printf("Available: %d\n", listing.AvailableQuantity)
	fmt.Printf("Exporter:  %s\n", listing.UserEmail)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fields := client.ListingFields{}
	fs.StringVar(&fields.Name, "name", "", "product name")
	fs.StringVar(&fields.Image, "image", "", "product image URL")
	fs.StringVar(&fields.OriginCountry, "origin", "", "origin country")
	fs.Float64Var(&fields.Price, "price", 0, "unit price")
	fs.Float64Var(&fields.Rating, "rating", 0, "rating 0-5")
	fs.IntVar(&fields.AvailableQuantity, "qty", 0, "available quantity")
	fs.Parse(args)

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	listing, err := a.hub.CreateListing(ctx, sess, &fields)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", listing.ID)
	return nil
}

func (a *app) importQuantity(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("import requires a listing ID")
	}
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	qty := fs.Int("qty", 1, "quantity to import")
	fs.Parse(args[1:])

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	result, err := a.hub.ImportQuantity(ctx, sess, args[0], *qty)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d, you now hold %d (available: %d)\n",
		*qty, result.ImportedQuantity, result.AvailableQuantity)
	return nil
}

func (a *app) myImports(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	records, err := a.hub.ListMyImports(ctx, sess)
	if err != nil {
		return err
	}

	for _, r := range records {
		fmt.Printf("%s  %-30s  held=%d  available=%d\n",
			r.ListingID, r.Name, r.ImportedQuantity, r.AvailableQuantity)
	}
	fmt.Printf("%d import records\n", len(records))
	return nil
}

func (a *app) removeImport(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("remove-import requires a listing ID")
	}

	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	if err := a.hub.RemoveImport(ctx, sess, args[0]); err != nil {
		return err
	}

	fmt.Println("Import removed, stock released")
	return nil
}
