package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/kassabok/internal/transaction"
	txStore "github.com/MrJamesThe3rd/kassabok/internal/transaction/store"
)

type classificationJSON struct {
	transactionJSON
	Fingerprint string             `json:"fingerprint,omitempty"`
	Status      transaction.Status `json:"status"`
	ExistingID  *uuid.UUID         `json:"existing_id,omitempty"`
}

type dedupJSON struct {
	Workspace       uuid.UUID            `json:"workspace"`
	Saved           bool                 `json:"saved"`
	Counts          map[string]int       `json:"counts"`
	Classifications []classificationJSON `json:"classifications"`
}

var statuses = []transaction.Status{
	transaction.StatusUnique,
	transaction.StatusDuplicate,
	transaction.StatusDuplicateInBatch,
	transaction.StatusUnfingerprintable,
}

func newDedupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup FILE",
		Short: "Classify a file's transactions against a workspace",
		Long: `Fingerprint every transaction of FILE and look the fingerprints up in the
workspace with one query. With --save the unique transactions are stored in
the same locked database transaction as the lookup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("workspace")

			workspace, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --workspace %q: %w", raw, err)
			}

			res, err := a.importFile(args[0])
			if err != nil {
				return err
			}

			candidates := res.Transactions
			if bankOnly, _ := cmd.Flags().GetBool("bank-only"); bankOnly {
				candidates = res.BankTransactions()
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}

			svc := transaction.NewService(txStore.New(db), a.logger, a.metrics)

			var classifications []transaction.Classification

			save, _ := cmd.Flags().GetBool("save")
			if save {
				imported, err := svc.Import(cmd.Context(), workspace, candidates)
				if err != nil {
					return err
				}

				classifications = imported.Classifications
			} else {
				checked, err := svc.CheckDuplicates(cmd.Context(), workspace, candidates)
				if err != nil {
					return err
				}

				classifications = checked.Classifications
			}

			return writeJSON(cmd.OutOrStdout(), toDedupJSON(workspace, save, classifications))
		},
	}

	cmd.Flags().String("workspace", "", "Workspace ID (required)")
	cmd.Flags().Bool("save", false, "Store the unique transactions")
	cmd.Flags().Bool("bank-only", false, "Only consider lines posted to bank and cash accounts (1900-1999)")
	_ = cmd.MarkFlagRequired("workspace")

	return cmd
}

func toDedupJSON(workspace uuid.UUID, saved bool, classifications []transaction.Classification) dedupJSON {
	out := dedupJSON{
		Workspace:       workspace,
		Saved:           saved,
		Counts:          make(map[string]int, len(statuses)),
		Classifications: make([]classificationJSON, 0, len(classifications)),
	}

	for _, s := range statuses {
		out.Counts[string(s)] = 0
	}

	for _, c := range classifications {
		out.Counts[string(c.Status)]++
		out.Classifications = append(out.Classifications, classificationJSON{
			transactionJSON: newTransactionJSON(c.Candidate),
			Fingerprint:     c.Fingerprint,
			Status:          c.Status,
			ExistingID:      c.ExistingID,
		})
	}

	return out
}
