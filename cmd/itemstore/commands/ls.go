package commands

import (
	"encoding/json"
	"fmt"

	"github.com/mashiike/itemstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Ls returns the ls command.
//
// Without --page-size or --token every page is listed. With either flag a
// single page is printed, followed by a {"next_continuation_token": ...}
// line when more pages remain.
func Ls(v *viper.Viper) *cobra.Command {
	var (
		pageSize int32
		token    string
	)

	cmd := &cobra.Command{
		Use:   "ls ADDRESS [PREFIX]",
		Short: "List items as JSON lines",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 2 {
				prefix = args[1]
			}
			client, err := openClient(cmd.Context(), v, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())

			if pageSize <= 0 && token == "" {
				objects, err := client.List(cmd.Context(), prefix)
				if err != nil {
					return err
				}
				return encodeObjects(enc, objects)
			}

			page, err := client.ListPage(cmd.Context(), prefix, itemstore.ListOptions{
				ContinuationToken: token,
				MaxKeys:           pageSize,
			})
			if err != nil {
				return err
			}
			if err := encodeObjects(enc, page.Objects); err != nil {
				return err
			}
			if page.IsTruncated {
				return enc.Encode(map[string]string{"next_continuation_token": page.NextContinuationToken})
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&pageSize, "page-size", 0, "List a single page of at most this many items")
	cmd.Flags().StringVar(&token, "token", "", "Continuation token from a previous page")

	return cmd
}

func encodeObjects(enc *json.Encoder, objects []itemstore.ObjectInfo) error {
	for _, obj := range objects {
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode object: %w", err)
		}
	}
	return nil
}
