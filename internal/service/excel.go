package service

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	logsSheet     = "Logs"
	projectsSheet = "Projetos"
)

var (
	logHeaders     = []string{"Projeto", "Autor", "Data", "Ação", "Lista", "Alvo", "Resumo", "Link"}
	projectHeaders = []string{"ID", "Nome", "Descrição", "Criado em", "Todos", "Listas (concluídas/total)", "Handover", "Hardware concluído", "Erro"}
)

// ExcelGenerator gera arquivos Excel
type ExcelGenerator struct{}

// NewExcelGenerator cria um novo gerador de Excel
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// GenerateLogs exports the (already filtered) activity logs
func (g *ExcelGenerator) GenerateLogs(logs []model.ActivityLog) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []interface{}{
			l.Bucket.Name,
			l.Creator.Name,
			l.CreatedAt.Format(dateLayout),
			l.DisplayTitle,
			l.ParentTitle,
			l.Target,
			l.SummaryExcerpt,
			l.AppURL,
		})
	}
	return g.generate(logsSheet, logHeaders, rows)
}

// GenerateProjects exports one row per aggregated project
func (g *ExcelGenerator) GenerateProjects(projects []model.ProjectWithDetails) (*bytes.Buffer, error) {
	rows := make([][]interface{}, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []interface{}{
			p.ID,
			p.Name,
			p.Description,
			p.CreatedAt.Format(dateLayout),
			len(p.AllTodos),
			completionSummary(p.TodolistCompletionCounts),
			handoverSummary(p.FilteredTodos),
			len(p.FilteredHardwareContent),
			p.Error,
		})
	}
	return g.generate(projectsSheet, projectHeaders, rows)
}

func (g *ExcelGenerator) generate(sheet string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Renomeia a sheet padrão
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	// Escreve cabeçalhos
	if err := g.writeHeaders(f, sheet, headers); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	// Escreve dados
	if err := g.writeData(f, sheet, rows); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}

	// Ajusta largura das colunas
	if err := g.autoFitColumns(f, sheet, len(headers)); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	// Escreve para buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	return buf, nil
}

// writeHeaders escreve os cabeçalhos no Excel
func (g *ExcelGenerator) writeHeaders(f *excelize.File, sheet string, headers []string) error {
	// Estilo do cabeçalho
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"1D6F42"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}

	// Congela o cabeçalho
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeData escreve as linhas com estilo zebrado
func (g *ExcelGenerator) writeData(f *excelize.File, sheet string, rows [][]interface{}) error {
	border := []excelize.Border{
		{Type: "left", Color: "D9D9D9", Style: 1},
		{Type: "top", Color: "D9D9D9", Style: 1},
		{Type: "bottom", Color: "D9D9D9", Style: 1},
		{Type: "right", Color: "D9D9D9", Style: 1},
	}
	styleOdd, _ := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border: border,
	})
	styleEven, _ := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Border: border,
	})

	for i, row := range rows {
		excelRow := i + 2 // Linha 1 é header

		style := styleEven
		if i%2 == 1 {
			style = styleOdd
		}

		first, _ := excelize.CoordinatesToCellName(1, excelRow)
		last, _ := excelize.CoordinatesToCellName(len(row), excelRow)

		if err := f.SetSheetRow(sheet, first, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, first, last, style); err != nil {
			return err
		}
	}

	return nil
}

// autoFitColumns ajusta a largura das colunas
func (g *ExcelGenerator) autoFitColumns(f *excelize.File, sheet string, numCols int) error {
	for col := 1; col <= numCols; col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, colName, colName, 22); err != nil {
			return err
		}
	}
	return nil
}

func completionSummary(counts map[string]string) string {
	parts := make([]string, 0, len(counts))
	for title, ratio := range counts {
		parts = append(parts, title+": "+ratio)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func handoverSummary(dates []model.HandoverDates) string {
	parts := make([]string, 0, len(dates))
	for _, d := range dates {
		parts = append(parts, d.StartsOn+" → "+d.DueOn)
	}
	return strings.Join(parts, "; ")
}
