package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wedealize/sourcing-engine/internal/model"
)

var (
	supplierID     string
	supplierLocale string
)

var supplierCmd = &cobra.Command{
	Use:   "supplier",
	Short: "Manage suppliers",
}

var supplierAddCmd = &cobra.Command{
	Use:   "add <name> <email>",
	Short: "Register a supplier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		id := supplierID
		if id == "" {
			id = uuid.NewString()
		}
		sup := &model.Supplier{
			ID:        id,
			Name:      args[0],
			Email:     args[1],
			Locale:    supplierLocale,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.SaveSupplier(cmd.Context(), sup); err != nil {
			return err
		}
		fmt.Printf("supplier %s registered\n", sup.ID)
		return nil
	},
}

var supplierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered suppliers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		suppliers, err := st.ListSuppliers(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range suppliers {
			locale := s.Locale
			if locale == "" {
				locale = cfg.Followup.DefaultLocale
			}
			fmt.Printf("%s  %-30s %-30s %s\n", s.ID, s.Name, s.Email, locale)
		}
		return nil
	},
}

func init() {
	supplierAddCmd.Flags().StringVar(&supplierID, "id", "", "explicit supplier id (defaults to a random UUID)")
	supplierAddCmd.Flags().StringVar(&supplierLocale, "locale", "", "preferred locale for follow-ups (en, ko)")
	supplierCmd.AddCommand(supplierAddCmd)
	supplierCmd.AddCommand(supplierListCmd)
	rootCmd.AddCommand(supplierCmd)
}
