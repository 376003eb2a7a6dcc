package contracts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Contract is one manifest row. Values are taken verbatim.
type Contract struct {
	ID       string
	FileName string
	// ViewURL is the document viewer address, see DownloadURL.
	ViewURL string
}

type column int

const (
	columnID column = iota
	columnFileName
	columnURL
)

// every required column and the header names accepted for it
var columnAliases = map[column][]string{
	columnID:       {"合同ID", "contract_id"},
	columnFileName: {"合同文件", "file_name"},
	columnURL:      {"合同地址", "url"},
}

var columnNames = map[column]string{
	columnID:       "合同ID",
	columnFileName: "合同文件",
	columnURL:      "合同地址",
}

// ReadManifest reads the contracts listed in a csv or xlsx manifest. For
// xlsx files the first sheet is read.
func ReadManifest(path string) ([]Contract, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXlsx(path)
	default:
		rows, err = readCsv(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read manifest %s: empty file", path)
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var out []Contract
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, Contract{
			ID:       cell(row, index[columnID]),
			FileName: cell(row, index[columnFileName]),
			ViewURL:  cell(row, index[columnURL]),
		})
	}
	return out, nil
}

func readCsv(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		// excel likes to save utf-8 csv files with a BOM
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXlsx(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func headerIndex(header []string) (map[column]int, error) {
	index := map[column]int{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		for col, aliases := range columnAliases {
			for _, alias := range aliases {
				if strings.EqualFold(name, alias) {
					if _, taken := index[col]; !taken {
						index[col] = i
					}
				}
			}
		}
	}

	var missing []string
	for _, col := range []column{columnID, columnFileName, columnURL} {
		if _, ok := index[col]; !ok {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
