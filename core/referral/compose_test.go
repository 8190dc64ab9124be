package referral

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/violation"
)

func testViolation() violation.Violation {
	v := violation.Violation{
		ID:           "v-1/2",
		Degree:       violation.DegreeSecond,
		Type:         "Phone use in class",
		Date:         "2024-03-01",
		Time:         "09:00",
		StudentName:  "Amani Kabila",
		ReporterName: "Samuel Ilunga",
		Repetition:   2,
		Procedures: violation.NewExecutions([]violation.ProcedureDefinition{
			{Step: 3, Title: "Counseling session", Tasks: []violation.TaskDefinition{
				{ID: "refer", Title: "Referral to the counselor", AutomationTrigger: "refer_to_counselor"},
			}},
		}),
	}
	v.Procedures[0].Notes = "Refused to hand over the phone <again>"
	return v
}

func TestCompose(t *testing.T) {
	issued := time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC)

	t.Run("full", func(t *testing.T) {
		v := testViolation()
		v.Description = "Used a phone during the exam"
		doc, err := Compose(v, 3, "refer", Context{
			SchoolName: "Masomo Academy",
			Recipient:  "Grace Mbuyi",
			Student:    &violation.Student{Name: "Amani Kabila", ClassName: "7A", GuardianName: "Josephine Kabila"},
			IssuedAt:   issued,
		})
		require.NoError(t, err)

		assert.Equal(t, "Referral to the counselor - Amani Kabila", doc.Title)
		assert.Equal(t, "referral-v-1_2-3-refer.html", doc.Filename)
		html := string(doc.HTML)
		for _, want := range []string{
			"<!DOCTYPE html>", "<style>", "Masomo Academy", "To: Grace Mbuyi", "7A", "Josephine Kabila",
			"Samuel Ilunga", "Repetition", "Procedure step 3: Counseling session",
			"&lt;again&gt;", "Issued on 2024-03-02 14:30",
		} {
			assert.Contains(t, html, want)
		}
		assert.NotContains(t, html, Placeholder)
	})

	t.Run("missing fields show a placeholder", func(t *testing.T) {
		v := testViolation()
		v.ReporterName = ""
		v.Procedures[0].Notes = "  "
		doc, err := Compose(v, 3, "refer", Context{IssuedAt: issued})
		require.NoError(t, err)

		html := string(doc.HTML)
		// class, guardian, description, reporter and notes
		assert.Equal(t, 5, strings.Count(html, `<span class="placeholder">`+Placeholder+`</span>`))
		assert.NotContains(t, html, "To:")
	})

	t.Run("unknown step or task", func(t *testing.T) {
		_, err := Compose(testViolation(), 1, "refer", Context{})
		assert.Equal(t, violation.ErrStepNotFound, errors.Cause(err))
		_, err = Compose(testViolation(), 3, "nope", Context{})
		assert.Equal(t, ErrTaskNotFound, errors.Cause(err))
	})
}

func TestPresenters(t *testing.T) {
	doc := Document{Title: "Referral", Filename: "referral-v1-3-refer.html", HTML: []byte("<html></html>")}

	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		p := &WriterPresenter{W: &buf}
		require.NoError(t, p.Print(doc))
		name, err := p.Export(doc)
		require.NoError(t, err)
		assert.Equal(t, doc.Filename, name)
		assert.Equal(t, "<html></html><html></html>", buf.String())
	})

	t.Run("file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "exports")
		p := &FilePresenter{Dir: dir}
		path, err := p.Export(doc)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, doc.Filename), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, doc.HTML, content)
	})
}
