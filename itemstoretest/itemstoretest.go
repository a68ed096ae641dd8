// Package itemstoretest provides a conformance suite for itemstore.Client
// implementations, similar in spirit to how fstest.TestFS checks fs.FS.
package itemstoretest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/mashiike/itemstore"
	"github.com/stretchr/testify/require"
)

// FolderSize is the number of items the folder and pagination checks write.
// Configure the client under test with a page size below it (2 works well)
// so those checks span several listing pages.
const FolderSize = 5

// RunClientTests checks the behaviour every backend must share.
// newClient is called once per subtest and must return a client with no items.
func RunClientTests(t *testing.T, newClient func(t *testing.T) itemstore.Client) {
	t.Helper()

	t.Run("KindAndAddress", func(t *testing.T) {
		client := newClient(t)
		require.NotEqual(t, itemstore.KindUnknown, client.Kind())
		require.True(t, strings.HasSuffix(client.Address(), "/"), "address %q must end with /", client.Address())
		require.False(t, strings.HasSuffix(client.Address(), "//"), "address %q must end with one /", client.Address())
	})

	t.Run("Verify", func(t *testing.T) {
		client := newClient(t)
		require.NoError(t, client.Verify(context.Background()))
	})

	t.Run("BinaryRoundTrip", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		data := make([]byte, 256)
		for i := range data {
			data[i] = byte(i)
		}
		require.NoError(t, client.WriteItem(ctx, "bin/all-bytes.dat", data))

		got, err := client.ReadItem(ctx, "bin/all-bytes.dat")
		require.NoError(t, err)
		require.Equal(t, data, got)

		exists, err := client.Exists(ctx, "bin/all-bytes.dat")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("TextRoundTrip", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		for key, text := range map[string]string{
			"file.json":        "{}",
			"notes/hello.txt":  "héllo 世界\n",
			"notes/empty.txt":  "",
			"deep/a/b/c/d.txt": "nested",
		} {
			require.NoError(t, client.WriteTextItem(ctx, key, text))
			got, err := client.ReadTextItem(ctx, key)
			require.NoError(t, err)
			require.Equal(t, text, got, "key %s", key)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		require.NoError(t, client.WriteTextItem(ctx, "item.txt", "first"))
		require.NoError(t, client.WriteTextItem(ctx, "item.txt", "second"))

		got, err := client.ReadTextItem(ctx, "item.txt")
		require.NoError(t, err)
		require.Equal(t, "second", got)
	})

	t.Run("ReadAsStream", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		content := strings.Repeat("stream-me ", 1000)
		require.NoError(t, client.WriteTextItem(ctx, "large.txt", content))

		rc, err := client.ReadAsStream(ctx, "large.txt")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, content, string(got))
	})

	t.Run("MissingItem", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		exists, err := client.Exists(ctx, "missing.txt")
		require.NoError(t, err)
		require.False(t, exists)

		_, err = client.ReadItem(ctx, "missing.txt")
		require.Error(t, err)
		require.True(t, itemstore.IsNotFound(err), "got %v", err)

		_, err = client.ReadAsStream(ctx, "missing.txt")
		require.Error(t, err)
		require.True(t, itemstore.IsNotFound(err), "got %v", err)
	})

	t.Run("DeleteItem", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		require.NoError(t, client.WriteTextItem(ctx, "doomed.txt", "bye"))
		require.NoError(t, client.DeleteItem(ctx, "doomed.txt"))

		exists, err := client.Exists(ctx, "doomed.txt")
		require.NoError(t, err)
		require.False(t, exists)

		// deleting again is not an error
		require.NoError(t, client.DeleteItem(ctx, "doomed.txt"))
	})

	t.Run("ListAllPages", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		want := writeFolder(t, client, "list")
		require.NoError(t, client.WriteTextItem(ctx, "unlisted.txt", "x"))

		objects, err := client.List(ctx, "list/")
		require.NoError(t, err)
		require.Equal(t, want, keys(objects))
		for _, obj := range objects {
			require.Equal(t, int64(len(obj.Key)), obj.Size, "key %s", obj.Key)
		}
	})

	t.Run("ListPageContinuation", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		want := writeFolder(t, client, "pages")

		var got []string
		var pages int
		opts := itemstore.ListOptions{MaxKeys: 2}
		for {
			page, err := client.ListPage(ctx, "pages/", opts)
			require.NoError(t, err)
			require.LessOrEqual(t, len(page.Objects), 2)
			pages++
			got = append(got, keys(page.Objects)...)
			if !page.IsTruncated {
				require.Empty(t, page.NextContinuationToken)
				break
			}
			require.NotEmpty(t, page.NextContinuationToken)
			opts.ContinuationToken = page.NextContinuationToken
		}
		require.Equal(t, want, got)
		require.GreaterOrEqual(t, pages, 3)
	})

	t.Run("DeleteFolder", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		writeFolder(t, client, "folder")
		require.NoError(t, client.WriteTextItem(ctx, "folder-sibling.txt", "keep"))
		require.NoError(t, client.WriteTextItem(ctx, "other/keep.txt", "keep"))

		require.NoError(t, client.DeleteFolder(ctx, "folder"))

		objects, err := client.List(ctx, "folder/")
		require.NoError(t, err)
		require.Empty(t, objects)

		for _, key := range []string{"folder-sibling.txt", "other/keep.txt"} {
			exists, err := client.Exists(ctx, key)
			require.NoError(t, err)
			require.True(t, exists, "%s must survive", key)
		}

		// an already empty folder is fine
		require.NoError(t, client.DeleteFolder(ctx, "folder/"))
	})

	t.Run("DeleteFolderInvalidPrefix", func(t *testing.T) {
		client := newClient(t)
		ctx := context.Background()

		require.NoError(t, client.WriteTextItem(ctx, "keep/x.txt", "keep"))
		require.NoError(t, client.WriteTextItem(ctx, "other.txt", "keep"))

		for _, prefix := range []string{"/", "/keep", "a/..", "keep/..", "../", "./keep", "keep//x"} {
			err := client.DeleteFolder(ctx, prefix)
			require.ErrorIs(t, err, itemstore.ErrInvalidKey, "prefix %q", prefix)
		}

		objects, err := client.List(ctx, "")
		require.NoError(t, err)
		require.Equal(t, []string{"keep/x.txt", "other.txt"}, keys(objects))
		require.NoError(t, client.Verify(ctx))
	})
}

// writeFolder writes FolderSize items under folder and returns their keys in listing order
func writeFolder(t *testing.T, client itemstore.Client, folder string) []string {
	t.Helper()

	keys := make([]string, 0, FolderSize)
	for i := range FolderSize {
		key := fmt.Sprintf("%s/item-%02d.txt", folder, i)
		require.NoError(t, client.WriteTextItem(context.Background(), key, key))
		keys = append(keys, key)
	}
	return keys
}

func keys(objects []itemstore.ObjectInfo) []string {
	out := make([]string, 0, len(objects))
	for _, obj := range objects {
		out = append(out, obj.Key)
	}
	return out
}
