package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/colmdoyle/ankibox/internal/collection"
	"github.com/colmdoyle/ankibox/internal/config"
	"github.com/colmdoyle/ankibox/internal/export"
	"github.com/colmdoyle/ankibox/internal/storage"
	"github.com/colmdoyle/ankibox/internal/sync"
)

const usage = `usage: ankibox [flags] <command>

commands:
  add <question> <answer> [tag ...]   add a note to the configured deck
  due                                 list cards due for review today
  review <card-id> <quality 0-5>      record a review result
  upcoming [days]                     summarize upcoming reviews
  import                              import notes from configured sources
  export                              write the collection package archive
`

func main() {
	fs := flag.NewFlagSet("ankibox", flag.ExitOnError)
	config.Flags(fs)
	fs.Usage = func() {
		fmt.Print(usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open collection: %v", err)
	}
	defer db.Close()

	if err := run(db, cfg, args); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(db *storage.DB, cfg *config.Config, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "add":
		return cmdAdd(db, cfg, rest)
	case "due":
		return cmdDue(db)
	case "review":
		return cmdReview(db, rest)
	case "upcoming":
		return cmdUpcoming(db, rest)
	case "import":
		return cmdImport(db, cfg)
	case "export":
		return export.Export(db.Path(), cfg.ExportPath, nil)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ensureSetup resolves the configured model and deck, creating them on
// first use with a two-field question/answer template.
func ensureSetup(db *storage.DB, cfg *config.Config) (modelID, deckID int64, err error) {
	modelID, ok, err := db.FindModelID(cfg.Model)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		modelID, err = db.AddModel(cfg.Model, []string{"Front", "Back"}, []collection.TemplateSpec{
			{Name: "Card 1", Qfmt: "{{Front}}", Afmt: "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}"},
		})
		if err != nil {
			return 0, 0, err
		}
	}

	deckID, ok, err = db.FindDeckID(cfg.Deck)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		deckID, err = db.AddDeck(cfg.Deck)
		if err != nil {
			return 0, 0, err
		}
	}
	return modelID, deckID, nil
}

func cmdAdd(db *storage.DB, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("add wants a question and an answer")
	}
	modelID, deckID, err := ensureSetup(db, cfg)
	if err != nil {
		return err
	}
	noteID, err := db.AddNote(modelID, deckID, args[:2], args[2:])
	if err != nil {
		return err
	}
	fmt.Printf("Added note %d\n", noteID)
	return nil
}

func cmdDue(db *storage.DB) error {
	due, err := db.DueCards(time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		fmt.Printf("%d\t%s\n", d.CardID, strings.Join(d.Fields, " | "))
	}
	fmt.Printf("%d card(s) due\n", len(due))
	return nil
}

func cmdReview(db *storage.DB, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("review wants a card id and a quality rating")
	}
	cardID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card id %q", args[0])
	}
	quality, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quality %q", args[1])
	}
	res, err := db.ReviewCard(cardID, quality, 0)
	if err != nil {
		return err
	}
	fmt.Printf("Card %d: interval %dd, ease %.2f\n",
		cardID, res.Card.Interval, float64(res.Card.Factor)/1000.0)
	return nil
}

func cmdUpcoming(db *storage.DB, args []string) error {
	days := 30
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid day count %q", args[0])
		}
		days = d
	}
	counts, err := db.UpcomingReviews(time.Now(), days)
	if err != nil {
		return err
	}
	for _, dc := range counts {
		fmt.Printf("%s\t%d card(s)\n", dc.Day.Format("2006-01-02"), dc.Count)
	}
	return nil
}

func cmdImport(db *storage.DB, cfg *config.Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured; set --sources or the config file")
	}
	modelID, deckID, err := ensureSetup(db, cfg)
	if err != nil {
		return err
	}
	importer := &sync.Importer{DB: db, ModelID: modelID, DeckID: deckID, ReposDir: cfg.ReposDir}
	stats := importer.Run(cfg.Sources)
	for _, e := range stats.Errors {
		fmt.Printf("warning: %v\n", e)
	}
	fmt.Printf("Imported %d note(s), skipped %d duplicate(s)\n", stats.Added, stats.Duplicates)
	return nil
}
