package http

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meridian-fin/meridian/internal/consol"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	if _, err := s.buf.WriteString(line); err != nil {
		return err
	}
	return nil
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// writeEliminationsCSV streams the eliminations journal of a run.
func writeEliminationsCSV(w io.Writer, result *consol.ConsolidatedResult) error {
	s := newCSVStreamer(w)
	if err := s.writeComment(fmt.Sprintf("# Eliminations journal for run %s period %s", result.RunID, result.Period)); err != nil {
		return err
	}
	header := []string{"id", "type", "debit_account", "credit_account", "amount", "entity_a", "entity_b", "affects_income_statement", "affects_balance_sheet", "description"}
	if err := s.writeRow(header); err != nil {
		return err
	}
	for _, e := range result.Eliminations {
		row := []string{
			e.ID,
			e.Type,
			e.DebitAccount,
			e.CreditAccount,
			e.Amount.String(),
			e.EntityA,
			e.EntityB,
			strconv.FormatBool(e.AffectsIncomeStmt),
			strconv.FormatBool(e.AffectsBalanceSheet),
			e.Description,
		}
		if err := s.writeRow(row); err != nil {
			return err
		}
	}
	return s.Flush()
}
