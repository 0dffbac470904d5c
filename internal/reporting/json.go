package reporting

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/quellcrist/flowmend/api/schemas"
	"github.com/quellcrist/flowmend/internal/logscan"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonReporter struct{}

type fixReportDoc struct {
	File   string             `json:"file"`
	Report *schemas.FixReport `json:"report"`
}

type analysisDoc struct {
	Source   string                              `json:"source"`
	Findings []logscan.Finding                   `json:"findings"`
	Counts   map[logscan.Category]int            `json:"counts"`
	Advice   map[logscan.Category]logscan.Advice `json:"advice"`
}

func (j *jsonReporter) FixReport(path string, rep *schemas.FixReport) (string, error) {
	out, err := json.MarshalIndent(fixReportDoc{File: path, Report: rep}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reporting: encoding fix report: %w", err)
	}
	return string(out) + "\n", nil
}

func (j *jsonReporter) Analysis(source string, findings []logscan.Finding) (string, error) {
	doc := analysisDoc{
		Source:   source,
		Findings: findings,
		Counts:   make(map[logscan.Category]int),
		Advice:   make(map[logscan.Category]logscan.Advice),
	}
	for _, f := range findings {
		doc.Counts[f.Category]++
		doc.Advice[f.Category] = logscan.Advise(f.Category)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("reporting: encoding analysis: %w", err)
	}
	return string(out) + "\n", nil
}
