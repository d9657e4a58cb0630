package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var exportHeader = []string{
	"예약ID", "골프장", "담당자", "티타임일자", "티타임",
	"예약금", "PG수수료", "플랫폼수수료", "부가세", "정산금액", "상태",
}

// utf8BOM lets spreadsheet tools detect the encoding of the Korean headers.
const utf8BOM = "\ufeff"

// ExportFilename is the download name for a settlement export.
func ExportFilename(detail *SettlementDetail) string {
	st := detail.Settlement
	return fmt.Sprintf("settlement_%s_%s_%s.csv", strings.ToLower(string(st.Period)), st.StartDate, st.EndDate)
}

// WriteCSV writes one row per settlement item.
func WriteCSV(w io.Writer, detail *SettlementDetail) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, it := range detail.Items {
		if err := cw.Write([]string{
			it.BookingID,
			it.CourseName,
			it.ManagerName,
			it.TeeDate,
			it.TeeTime,
			strconv.FormatInt(it.BookingAmount, 10),
			strconv.FormatInt(it.PGFee, 10),
			strconv.FormatInt(it.Commission, 10),
			strconv.FormatInt(it.VAT, 10),
			strconv.FormatInt(it.NetAmount, 10),
			string(it.BookingStatus),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export loads a settlement and writes it as CSV, returning the file name.
func Export(ctx context.Context, svc SettlementService, id string, w io.Writer) (string, error) {
	detail, err := svc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(w, detail); err != nil {
		return "", fmt.Errorf("write settlement csv: %w", err)
	}
	return ExportFilename(detail), nil
}
