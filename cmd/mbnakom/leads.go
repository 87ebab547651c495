package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/alecgard/mbnakom/internal/config"
	"github.com/alecgard/mbnakom/internal/leads"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect archived contact and appointment leads",
}

var (
	leadsSource string
	leadsLimit  int
	leadsCursor string
)

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived leads, newest first",
	RunE:  runLeadsList,
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsSource, "source", "", "only leads from this source (contact or appointment)")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 50, "page size")
	leadsListCmd.Flags().StringVar(&leadsCursor, "cursor", "", "cursor printed by a previous page")
	leadsCmd.AddCommand(leadsListCmd)
	rootCmd.AddCommand(leadsCmd)
}

func runLeadsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is not set")
	}
	switch leadsSource {
	case "", leads.SourceContact, leads.SourceAppointment:
	default:
		return fmt.Errorf("unknown source %q", leadsSource)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := newLeadStore(pool, cfg.Leads.EncryptionKey)
	if err != nil {
		return err
	}

	counts, err := store.Count(ctx)
	if err != nil {
		return err
	}
	list, next, err := store.List(ctx, leads.Query{Source: leadsSource, Cursor: leadsCursor, Limit: leadsLimit})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSOURCE\tNAME\tEMAIL\tPHONE\tSERVICE\tMAILED")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			l.CreatedAt.Format("2006-01-02 15:04"), l.Source, l.Name, l.Email, l.Phone, l.Service, l.Mailed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d contact, %d appointment leads archived\n", counts[leads.SourceContact], counts[leads.SourceAppointment])
	if next != "" {
		fmt.Printf("next page: --cursor %s\n", next)
	}
	return nil
}
