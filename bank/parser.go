package bank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
	"github.com/spf13/cast"
)

// HeaderPolicy decides what happens to the first non-blank line of a bank.
type HeaderPolicy string

const (
	// HeaderDetect skips the first line only when it is not a valid question row.
	HeaderDetect HeaderPolicy = "detect"
	// HeaderSkip always treats the first line as a header.
	HeaderSkip HeaderPolicy = "skip"
	// HeaderNone treats every line as data.
	HeaderNone HeaderPolicy = "none"
)

const (
	fieldSeparator = "|"
	minFields      = 7
	firstOption    = 2
	lastOption     = 5
	answerField    = 6
	tagsField      = 7
	timeLimitField = 8
)

// ParsePolicy validates a configured header policy. An empty value means HeaderDetect.
func ParsePolicy(s string) (HeaderPolicy, error) {
	switch p := HeaderPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return HeaderDetect, nil
	case HeaderDetect, HeaderSkip, HeaderNone:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown bank header policy %q", models.ErrInvalidConfig, s)
	}
}

type ParseOptions struct {
	Header HeaderPolicy
}

// ParseReport summarises a parse the way an import report would.
type ParseReport struct {
	TotalRows     int      `json:"total_rows"`
	Imported      int      `json:"imported"`
	Skipped       int      `json:"skipped"`
	HeaderSkipped bool     `json:"header_skipped"`
	Errors        []string `json:"errors,omitempty"`
}

// Parse converts pipe-delimited bank text into questions. Invalid rows are skipped
// and listed in the report; a bank with no valid row fails with MalformedBankError.
func Parse(raw string, opts ParseOptions) ([]models.Question, *ParseReport, error) {
	policy := opts.Header
	if policy == "" {
		policy = HeaderDetect
	}

	lines := nonBlankLines(raw)
	report := &ParseReport{Errors: make([]string, 0)}

	if len(lines) > 0 {
		switch policy {
		case HeaderSkip:
			lines = lines[1:]
			report.HeaderSkipped = true
		case HeaderDetect:
			if _, err := parseRow(splitRow(lines[0]), 1); err != nil {
				utils.LogImport("First line is not a question row, treating it as a header")
				lines = lines[1:]
				report.HeaderSkipped = true
			}
		}
	}

	utils.LogImport("Parsing %d bank rows (header policy %s)", len(lines), policy)

	questions := make([]models.Question, 0, len(lines))
	for i, line := range lines {
		report.TotalRows++
		q, err := parseRow(splitRow(line), i+1)
		if err != nil {
			errMsg := fmt.Sprintf("row %d: %v", i+1, err)
			utils.LogImport("SKIP: %s", errMsg)
			report.Errors = append(report.Errors, errMsg)
			report.Skipped++
			continue
		}
		questions = append(questions, q)
		report.Imported++
	}

	if len(questions) == 0 {
		reason := "no valid question rows"
		if len(lines) == 0 {
			reason = "bank is empty"
		}
		return nil, report, &models.MalformedBankError{Reason: reason, Errors: report.Errors}
	}

	utils.LogImport("Bank parsed: %d imported, %d skipped", report.Imported, report.Skipped)
	return questions, report, nil
}

func nonBlankLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitRow(line string) []string {
	fields := strings.Split(line, fieldSeparator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseRow applies the row validity rules. position is the 1-based data row number.
func parseRow(fields []string, position int) (models.Question, error) {
	if len(fields) < minFields {
		return models.Question{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(fields))
	}

	text := fields[1]
	if text == "" {
		return models.Question{}, fmt.Errorf("question text is empty")
	}

	options := make([]string, 0, lastOption-firstOption+1)
	for _, opt := range fields[firstOption : lastOption+1] {
		if opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		return models.Question{}, fmt.Errorf("need at least 2 options, got %d", len(options))
	}

	answer := fields[answerField]
	if answer == "" {
		return models.Question{}, fmt.Errorf("correct answer is empty")
	}
	switch n := utils.CountMatches(options, answer); n {
	case 1:
	case 0:
		return models.Question{}, fmt.Errorf("answer %q is not one of the options", answer)
	default:
		return models.Question{}, fmt.Errorf("answer %q matches %d options", answer, n)
	}

	id := fields[0]
	if id == "" {
		id = strconv.Itoa(position)
	}

	q := models.Question{
		ID:            id,
		Text:          text,
		Options:       options,
		CorrectAnswer: answer,
		TimeLimit:     models.DefaultQuestionTimeLimit,
	}
	if len(fields) > tagsField {
		q.Tags = fields[tagsField]
	}
	if len(fields) > timeLimitField {
		if n, err := cast.ToIntE(fields[timeLimitField]); err == nil && n > 0 {
			q.TimeLimit = n
		}
	}
	return q, nil
}

// Validate reports whether q still satisfies the bank invariants.
func Validate(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %s: text is empty", q.ID)
	}
	nonEmpty := 0
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) != "" {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return fmt.Errorf("question %s: need at least 2 options", q.ID)
	}
	if n := utils.CountMatches(q.Options, q.CorrectAnswer); n != 1 {
		return fmt.Errorf("question %s: answer matches %d options", q.ID, n)
	}
	return nil
}
