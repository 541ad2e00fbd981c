package sharepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// Stat returns metadata for the item at the given path.
func (c *Client) Stat(ctx context.Context, remotePath string) (*Item, error) {
	id, err := c.ResolveID(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	gi, err := c.gc.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", remotePath, err)
	}

	item := fromGraphItem(*gi)

	return &item, nil
}

// Download streams the file at the given path to w and returns the
// number of bytes written.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	id, err := c.ResolveID(ctx, remotePath)
	if err != nil {
		return 0, err
	}

	n, err := c.gc.Download(ctx, id, w)
	if err != nil {
		return n, fmt.Errorf("downloading %q: %w", remotePath, err)
	}

	return n, nil
}

// DownloadFile downloads the file at remotePath to localPath.
func (c *Client) DownloadFile(ctx context.Context, remotePath, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", localPath, err)
	}

	if _, err := c.Download(ctx, remotePath, f); err != nil {
		f.Close()
		os.Remove(localPath)

		return err
	}

	return f.Close()
}

// readBytes downloads the file at the given path into memory.
func (c *Client) readBytes(ctx context.Context, remotePath string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Download(ctx, remotePath, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ReadSpreadsheet downloads and parses a CSV or Excel file into a
// DataFrame. The format is chosen by file extension.
func (c *Client) ReadSpreadsheet(ctx context.Context, remotePath string) (dataframe.DataFrame, error) {
	ext := strings.ToLower(path.Ext(remotePath))
	if ext != ".csv" && ext != ".xlsx" {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %q (want .csv or .xlsx)", ErrUnsupportedFileType, remotePath)
	}

	data, err := c.readBytes(ctx, remotePath)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	if ext == ".csv" {
		df := dataframe.ReadCSV(bytes.NewReader(data))
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("%w: csv file %q: %v", ErrParse, remotePath, df.Err)
		}

		return df, nil
	}

	return parseExcel(data, remotePath)
}

// parseExcel decodes the first sheet of an XLSX workbook into a DataFrame.
func parseExcel(data []byte, remotePath string) (dataframe.DataFrame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel file %q: %v", ErrParse, remotePath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel file %q has no sheets", ErrParse, remotePath)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel file %q: %v", ErrParse, remotePath, err)
	}

	if len(rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel file %q sheet %q is empty", ErrParse, remotePath, sheets[0])
	}

	// GetRows trims trailing empty cells; pad every row to the header width.
	width := len(rows[0])
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}

	df := dataframe.LoadRecords(rows)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: excel file %q: %v", ErrParse, remotePath, df.Err)
	}

	return df, nil
}

// ReadJSON downloads and parses a JSON file into a map.
func (c *Client) ReadJSON(ctx context.Context, remotePath string) (map[string]any, error) {
	data, err := c.readBytes(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: json file %q: %v", ErrParse, remotePath, err)
	}

	return out, nil
}
