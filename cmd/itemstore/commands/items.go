package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Verify returns the verify command.
func Verify(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ADDRESS",
		Short: "Check that the storage behind an address is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			if err := client.Verify(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is reachable\n", client.Address())
			return nil
		},
	}
}

// Exists returns the exists command.
func Exists(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "exists ADDRESS KEY",
		Short: "Print whether an item exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			ok, err := client.Exists(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

// Cat returns the cat command.
func Cat(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cat ADDRESS KEY",
		Short: "Stream an item to standard output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			rc, err := client.ReadAsStream(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			defer rc.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), rc); err != nil {
				return fmt.Errorf("failed to copy item: %w", err)
			}
			return nil
		},
	}
}

// Put returns the put command.
func Put(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "put ADDRESS KEY [FILE|-]",
		Short: "Write an item from a file or standard input",
		Long: `Put writes FILE as the item KEY. Without FILE, or when FILE is "-",
the item is read from standard input.

Example:
  itemstore put s3://my-bucket/data/v1 file.json ./file.json`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if len(args) == 3 && args[2] != "-" {
				content, err = os.ReadFile(args[2])
			} else {
				content, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			return client.WriteItem(cmd.Context(), args[1], content)
		},
	}
}

// Rm returns the rm command.
func Rm(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ADDRESS KEY",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			return client.DeleteItem(cmd.Context(), args[1])
		},
	}
}

// RmFolder returns the rm-folder command.
func RmFolder(v *viper.Viper) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rm-folder ADDRESS (PREFIX | --all)",
		Short: "Delete every item under a folder prefix",
		Long: `RmFolder deletes every item whose key starts with PREFIX/.
Deleting everything under ADDRESS needs --all instead of a PREFIX.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 2 {
				prefix = args[1]
			}
			switch {
			case all && prefix != "":
				return errors.New("--all cannot be combined with PREFIX")
			case !all && prefix == "":
				return errors.New("empty PREFIX deletes everything under ADDRESS, pass --all to confirm")
			}

			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			return client.DeleteFolder(cmd.Context(), prefix)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every item under ADDRESS")

	return cmd
}
