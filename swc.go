package sharepoint

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// swcColumns are the seven columns of the SWC neuron-morphology format:
// sample number, structure type, x/y/z position, radius, parent sample.
var swcColumns = []string{"n", "type", "x", "y", "z", "radius", "parent"}

// ReadSWC downloads and parses an SWC neuron-morphology file into a
// DataFrame with integer n/type/parent and float x/y/z/radius columns.
// Lines starting with '#' and blank lines are skipped.
func (c *Client) ReadSWC(ctx context.Context, remotePath string) (dataframe.DataFrame, error) {
	data, err := c.readBytes(ctx, remotePath)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df, err := parseSWC(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: swc file %q: %v", ErrParse, remotePath, err)
	}

	return df, nil
}

// parseSWC decodes whitespace-delimited SWC content.
func parseSWC(data []byte) (dataframe.DataFrame, error) {
	var (
		ns, types, parents []int
		xs, ys, zs, radii  []float64
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != len(swcColumns) {
			return dataframe.DataFrame{}, fmt.Errorf("line %d: want %d fields, got %d", lineNo, len(swcColumns), len(fields))
		}

		ints := make([]int, 3)

		for i, idx := range []int{0, 1, 6} {
			v, err := strconv.Atoi(fields[idx])
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("line %d: column %q: %v", lineNo, swcColumns[idx], err)
			}

			ints[i] = v
		}

		floats := make([]float64, 4)

		for i, idx := range []int{2, 3, 4, 5} {
			v, err := strconv.ParseFloat(fields[idx], 64)
			if err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("line %d: column %q: %v", lineNo, swcColumns[idx], err)
			}

			floats[i] = v
		}

		ns = append(ns, ints[0])
		types = append(types, ints[1])
		parents = append(parents, ints[2])
		xs = append(xs, floats[0])
		ys = append(ys, floats[1])
		zs = append(zs, floats[2])
		radii = append(radii, floats[3])
	}

	if err := scanner.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	return dataframe.New(
		series.New(ns, series.Int, "n"),
		series.New(types, series.Int, "type"),
		series.New(xs, series.Float, "x"),
		series.New(ys, series.Float, "y"),
		series.New(zs, series.Float, "z"),
		series.New(radii, series.Float, "radius"),
		series.New(parents, series.Int, "parent"),
	), nil
}

// UploadSWC serializes a morphology DataFrame as an SWC file and uploads
// it: a '#' header naming the columns, then space-delimited rows.
func (c *Client) UploadSWC(ctx context.Context, df dataframe.DataFrame, folderPath, fileName string) (*Item, error) {
	var buf bytes.Buffer

	records := df.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("sharepoint: empty dataframe for %q", fileName)
	}

	// records[0] is the header row.
	fmt.Fprintf(&buf, "# %s\n", strings.Join(records[0], " "))

	for _, row := range records[1:] {
		fmt.Fprintf(&buf, "%s\n", strings.Join(row, " "))
	}

	return c.Upload(ctx, &buf, folderPath, fileName, "text/plain")
}
