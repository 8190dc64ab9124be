package referral

import (
	"bytes"
	"embed"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/violation"
)

//go:embed templates/referral.gohtml
var templateFS embed.FS

// Placeholder is shown in place of optional fields that are empty.
const Placeholder = "Not provided"

var (
	ErrTaskNotFound = errors.New("procedure task not found")

	tmpl     *template.Template
	tmplErr  error
	tmplInit sync.Once

	unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
)

// Context carries what the composed document needs beyond the violation itself.
type Context struct {
	SchoolName string
	Recipient  string // e.g. the counselor or department the student is referred to
	Student    *violation.Student
	IssuedAt   time.Time
}

// Document is a self-contained HTML document, ready to be printed or saved.
type Document struct {
	Title    string
	Filename string
	HTML     []byte
}

type documentData struct {
	Title      string
	SchoolName string
	Recipient  string
	IssuedOn   string

	StudentName  string
	ClassName    string
	GuardianName string

	Type         string
	Degree       violation.Degree
	Date         string
	Time         string
	Repetition   int
	Description  string
	ReporterName string

	Step            int
	StepTitle       string
	TaskTitle       string
	TaskDescription string
	Notes           string
}

// Compose builds the referral document for a task of a violation's procedure step.
func Compose(v violation.Violation, step int, taskID string, c Context) (Document, error) {
	proc, ok := v.Procedure(step)
	if !ok {
		return Document{}, errors.Wrapf(violation.ErrStepNotFound, "step %d", step)
	}
	task, ok := proc.Task(taskID)
	if !ok {
		return Document{}, errors.Wrapf(ErrTaskNotFound, "task %q", taskID)
	}

	tmplInit.Do(parseTemplate)
	if tmplErr != nil {
		return Document{}, tmplErr
	}

	issuedAt := c.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	data := documentData{
		Title:           task.Title,
		SchoolName:      c.SchoolName,
		Recipient:       c.Recipient,
		IssuedOn:        issuedAt.Format("2006-01-02 15:04"),
		StudentName:     v.StudentName,
		Type:            v.Type,
		Degree:          v.Degree,
		Date:            v.Date,
		Time:            v.Time,
		Repetition:      v.Repetition,
		Description:     v.Description,
		ReporterName:    v.ReporterName,
		Step:            proc.Step,
		StepTitle:       proc.Title,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		Notes:           proc.Notes,
	}
	if c.Student != nil {
		if data.StudentName == "" {
			data.StudentName = c.Student.Name
		}
		data.ClassName = c.Student.ClassName
		data.GuardianName = c.Student.GuardianName
	}
	if data.StudentName != "" {
		data.Title += " - " + data.StudentName
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, data); err != nil {
		return Document{}, errors.Wrap(err, "rendering referral document")
	}
	return Document{
		Title:    data.Title,
		Filename: filename(v.ID, step, taskID),
		HTML:     buff.Bytes(),
	}, nil
}

func filename(violationID string, step int, taskID string) string {
	parts := []string{"referral", violationID, strconv.Itoa(step), taskID}
	for i, p := range parts {
		parts[i] = strings.Trim(unsafeFilename.ReplaceAllString(p, "_"), "_")
	}
	return strings.Join(parts, "-") + ".html"
}

// field renders value, or a visible placeholder when it is blank.
func field(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return template.HTML(`<span class="placeholder">` + Placeholder + `</span>`)
	}
	return value
}

func parseTemplate() {
	tmpl, tmplErr = template.New("referral.gohtml").
		Funcs(template.FuncMap{"field": field}).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/referral.gohtml")
	tmplErr = errors.Wrap(tmplErr, "parsing referral template")
}
