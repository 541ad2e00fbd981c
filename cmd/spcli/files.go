package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	sharepoint "github.com/AllenInstitute/wnm-sharepoint-client"
)

func newDrivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drives",
		Short: "List document libraries under the site",
		Args:  cobra.NoArgs,
		RunE:  runDrives,
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and folders",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the folder hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTree,
	}

	cmd.Flags().Bool("files", false, "include files in the tree")

	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display file or folder metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runStat,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path> [local-path]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runGet,
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [remote-folder]",
		Short: "Upload a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}

	cmd.Flags().Bool("replace", false, "replace an existing folder of the same name")

	return cmd
}

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <remote-path> <dest-folder>",
		Short: "Move a file to another folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runMv,
	}

	cmd.Flags().String("name", "", "rename the file at the destination")

	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder (folder deletion is recursive)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

// splitParentAndName splits a remote path into parent path and name.
// For "foo/bar/baz" returns ("foo/bar", "baz"); for "baz" returns ("", "baz").
func splitParentAndName(path string) (string, string) {
	clean := strings.Trim(path, "/")

	idx := strings.LastIndex(clean, "/")
	if idx < 0 {
		return "", clean
	}

	return clean[:idx], clean[idx+1:]
}

func argOr(args []string, i int, def string) string {
	if len(args) > i {
		return args[i]
	}

	return def
}

func runDrives(cmd *cobra.Command, _ []string) error {
	client, _, err := buildClient()
	if err != nil {
		return err
	}

	drives, err := client.ListDrives(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(drives)
	}

	rows := make([][]string, 0, len(drives))
	for _, d := range drives {
		rows = append(rows, []string{d.Name, d.DriveType, d.ID})
	}

	printTable(os.Stdout, []string{"NAME", "TYPE", "ID"}, rows)

	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	remotePath := argOr(args, 0, "")

	client, logger, err := buildClient()
	if err != nil {
		return err
	}

	logger.Debug("ls", "path", remotePath)

	items, err := client.ListItems(cmd.Context(), remotePath)
	if err != nil {
		return err
	}

	if flagJSON {
		return printItemsJSON(items)
	}

	printItemsTable(items)

	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	remotePath := argOr(args, 0, "")
	showFiles, _ := cmd.Flags().GetBool("files")

	client, _, err := buildClient()
	if err != nil {
		return err
	}

	return client.PrintDirectory(cmd.Context(), os.Stdout, remotePath, showFiles)
}

func runStat(cmd *cobra.Command, args []string) error {
	client, _, err := buildClient()
	if err != nil {
		return err
	}

	item, err := client.Stat(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(item)
	}

	kind := "file"
	if item.IsFolder {
		kind = "folder"
	}

	fmt.Printf("Name:     %s\n", item.Name)
	fmt.Printf("Type:     %s\n", kind)
	fmt.Printf("Size:     %s\n", formatSize(item.Size))
	fmt.Printf("Modified: %s\n", formatTime(item.ModifiedAt))
	fmt.Printf("ID:       %s\n", item.ID)

	if item.WebURL != "" {
		fmt.Printf("URL:      %s\n", item.WebURL)
	}

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	remotePath := args[0]

	client, logger, err := buildClient()
	if err != nil {
		return err
	}

	logger.Debug("get", "remote_path", remotePath)

	_, name := splitParentAndName(remotePath)
	localPath := argOr(args, 1, name)

	if err := client.DownloadFile(cmd.Context(), remotePath, localPath); err != nil {
		return err
	}

	statusf("Downloaded %s to %s\n", remotePath, localPath)

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath := args[0]
	remoteFolder := argOr(args, 1, "")

	client, logger, err := buildClient()
	if err != nil {
		return err
	}

	logger.Debug("put", "local_path", localPath, "remote_folder", remoteFolder)

	item, err := client.UploadFile(cmd.Context(), localPath, remoteFolder)
	if err != nil {
		return err
	}

	statusf("Uploaded %s (%s)\n", filepath.Base(localPath), formatSize(item.Size))

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	replace, _ := cmd.Flags().GetBool("replace")
	parent, name := splitParentAndName(args[0])

	client, _, err := buildClient()
	if err != nil {
		return err
	}

	if _, err := client.CreateFolder(cmd.Context(), parent, name, replace); err != nil {
		return err
	}

	statusf("Created folder %s\n", args[0])

	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	newName, _ := cmd.Flags().GetString("name")
	srcFolder, fileName := splitParentAndName(args[0])
	destFolder := args[1]

	client, _, err := buildClient()
	if err != nil {
		return err
	}

	item, err := client.MoveFile(cmd.Context(), srcFolder, fileName, destFolder, newName)
	if err != nil {
		return err
	}

	statusf("Moved %s to %s/%s\n", args[0], strings.Trim(destFolder, "/"), item.Name)

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	client, _, err := buildClient()
	if err != nil {
		return err
	}

	if err := client.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	statusf("Deleted %s\n", args[0])

	return nil
}

// lsJSONItem is the JSON output schema for a single item in ls output.
type lsJSONItem struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	IsFolder   bool   `json:"is_folder"`
	ModifiedAt string `json:"modified_at"`
	ID         string `json:"id"`
}

func printItemsJSON(items []sharepoint.Item) error {
	out := make([]lsJSONItem, 0, len(items))
	for i := range items {
		out = append(out, lsJSONItem{
			Name:       items[i].Name,
			Size:       items[i].Size,
			IsFolder:   items[i].IsFolder,
			ModifiedAt: items[i].ModifiedAt.Format("2006-01-02T15:04:05Z"),
			ID:         items[i].ID,
		})
	}

	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printItemsTable(items []sharepoint.Item) {
	// Folders first, then alphabetical.
	sort.Slice(items, func(i, j int) bool {
		if items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}

		return items[i].Name < items[j].Name
	})

	rows := make([][]string, 0, len(items))

	for i := range items {
		name := items[i].Name
		if items[i].IsFolder {
			name += "/"
		}

		rows = append(rows, []string{name, formatSize(items[i].Size), formatTime(items[i].ModifiedAt)})
	}

	printTable(os.Stdout, []string{"NAME", "SIZE", "MODIFIED"}, rows)
}
