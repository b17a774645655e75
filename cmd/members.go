package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gymgate/internal/config"
	"gymgate/internal/database"
	"gymgate/internal/database/postgres"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage the member roster",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members",
	RunE:  runMembersList,
}

var membersImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import members from a CSV export",
	Long: `Import members from a CSV file with columns: email, name, phone.
Existing members (matched by email) are updated; their stored face
embeddings are kept. Imported members still need biometric enrollment
at the kiosk before they can check in by face.`,
	Args: cobra.ExactArgs(1),
	RunE: runMembersImport,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersImportCmd)

	membersListCmd.Flags().Bool("eligible", false, "Only show members a terminal would match against")
}

func openMemberRepository() (*postgres.Pool, *postgres.MemberRepository, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, postgres.NewMemberRepository(pool), nil
}

func runMembersList(cmd *cobra.Command, args []string) error {
	pool, repo, err := openMemberRepository()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	var members []database.Member
	if mustGetBool(cmd, "eligible") {
		members, err = repo.ListEligible(ctx)
	} else {
		members, err = repo.ListAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	if len(members) == 0 {
		fmt.Println("No members found.")
		return nil
	}

	for _, m := range members {
		status := "inactive"
		if m.MembershipActive {
			status = "active"
		}
		enrolled := " "
		if len(m.Embedding) > 0 {
			enrolled = "*"
		}
		fmt.Printf("%s %-30s %-25s %s\n", enrolled, m.Email, m.Name, status)
	}
	fmt.Printf("\n%d members (* = biometric enrollment complete)\n", len(members))
	return nil
}

func runMembersImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading CSV: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		// Skip a header row.
		if strings.EqualFold(strings.TrimSpace(record[0]), "email") {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	pool, repo, err := openMemberRepository()
	if err != nil {
		return err
	}
	defer pool.Close()

	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Importing members"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("members"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	ctx := context.Background()
	imported, failed := 0, 0
	for _, row := range rows {
		m := database.Member{
			Email:            row[0],
			Name:             database.NormalizeName(row[1]),
			MembershipActive: true,
		}
		if len(row) > 2 {
			m.Phone = strings.TrimSpace(row[2])
		}
		if database.NormalizeIdentity(m.Email) == "" {
			failed++
			bar.Add(1)
			continue
		}
		if err := repo.UpsertEnrollment(ctx, m); err != nil {
			failed++
		} else {
			imported++
		}
		bar.Add(1)
	}
	fmt.Printf("\nImported %d members", imported)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	return nil
}
