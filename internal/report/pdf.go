// Package report renders session results as downloadable documents.
package report

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/signintech/gopdf"
	"github.com/stemsi/cat-backend/internal/model"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"

	pageWidth    = 595.28
	pageHeight   = 841.89
	marginX      = 56.0
	marginTop    = 56.0
	footerY      = pageHeight - 28
	contentLimit = pageHeight - 56

	tableTopFirst = 425.0
	rowHeight     = 18.0

	questionPreviewLen = 50
)

var (
	colorAccent = [3]uint8{37, 99, 235}
	colorPassed = [3]uint8{34, 197, 94}
	colorFailed = [3]uint8{239, 68, 68}
	colorStripe = [3]uint8{248, 250, 252}

	// column widths of the answer table: #, question, status, points
	tableCols = [4]float64{42, 283, 80, 78}
)

// PDFRenderer renders result sheets with embedded Go fonts.
type PDFRenderer struct {
	title string
}

// NewPDFRenderer creates a renderer whose documents are headed with title.
func NewPDFRenderer(title string) *PDFRenderer {
	return &PDFRenderer{title: title}
}

// Render writes the PDF result sheet of res to w.
func (r *PDFRenderer) Render(w io.Writer, res *model.SessionResult, generatedAt time.Time) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetInfo(gopdf.PdfInfo{
		Title:        fmt.Sprintf("%s - %s", r.title, res.Test.Title),
		Subject:      "Session " + res.Session.ID.String(),
		Creator:      "cat-backend",
		CreationDate: generatedAt,
	})
	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return fmt.Errorf("load bold font: %w", err)
	}

	pages := paginate(len(res.Result.Questions))
	d := &drawer{pdf: pdf}

	pdf.AddPage()
	d.header(r.title, res, generatedAt)

	row := 0
	for i, count := range pages {
		if i > 0 {
			pdf.AddPage()
		}
		top := marginTop
		if i == 0 {
			top = tableTopFirst
		}
		d.table(res.Result.Questions[row:row+count], row, top)
		row += count
		d.footer(i+1, len(pages), res.Session.ID.String())
	}

	if d.err != nil {
		return d.err
	}
	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// paginate splits n table rows over pages. The first page holds the
// summary so it fits fewer rows. There is always at least one page.
func paginate(n int) []int {
	limit, rh := float64(contentLimit), float64(rowHeight)
	first := int((limit - tableTopFirst - rh) / rh)
	rest := int((limit - marginTop - rh) / rh)

	pages := []int{min(n, first)}
	n -= pages[0]
	for n > 0 {
		c := min(n, rest)
		pages = append(pages, c)
		n -= c
	}
	return pages
}

// drawer remembers the first drawing error so layout code stays linear.
type drawer struct {
	pdf *gopdf.GoPdf
	err error
}

func (d *drawer) font(family string, size float64) {
	if d.err != nil {
		return
	}
	d.err = d.pdf.SetFont(family, "", size)
}

func (d *drawer) color(c [3]uint8) {
	d.pdf.SetTextColor(c[0], c[1], c[2])
}

func (d *drawer) text(x, y float64, s string) {
	if d.err != nil {
		return
	}
	d.pdf.SetXY(x, y)
	d.err = d.pdf.Cell(nil, s)
}

func (d *drawer) cell(x, y, w, h float64, s string, align int) {
	if d.err != nil {
		return
	}
	d.pdf.SetXY(x, y)
	d.err = d.pdf.CellWithOption(&gopdf.Rect{W: w, H: h}, s, gopdf.CellOption{Align: align | gopdf.Middle})
}

func (d *drawer) fill(x, y, w, h float64, c [3]uint8) {
	d.pdf.SetFillColor(c[0], c[1], c[2])
	d.pdf.RectFromUpperLeftWithStyle(x, y, w, h, "F")
}

func (d *drawer) header(title string, res *model.SessionResult, generatedAt time.Time) {
	d.font(fontBold, 20)
	d.color(colorAccent)
	d.text(marginX, marginTop, title)

	d.font(fontRegular, 12)
	d.color([3]uint8{100, 100, 100})
	d.text(marginX, marginTop+28, "Generated: "+generatedAt.Format("2 January 2006 15:04"))

	d.font(fontBold, 14)
	d.color([3]uint8{0, 0, 0})
	d.text(marginX, 128, "Test Information")

	completed := "N/A"
	if res.Session.CompletedAt != nil {
		completed = res.Session.CompletedAt.Format("2006-01-02")
	}
	d.font(fontRegular, 10)
	d.color([3]uint8{60, 60, 60})
	d.text(marginX, 152, "Test: "+res.Test.Title)
	d.text(marginX, 170, "Category: "+res.Test.Category)
	d.text(marginX, 188, fmt.Sprintf("Passing Score: %d%%", res.Result.PassingScore))
	d.text(marginX, 206, "Date: "+completed)

	const boxY, boxW, boxH = 240.0, 226.0, 113.0
	verdict, boxColor := "NOT PASSED", colorFailed
	if res.Result.Passed {
		verdict, boxColor = "PASSED", colorPassed
	}
	d.fill(marginX, boxY, boxW, boxH, boxColor)
	d.color([3]uint8{255, 255, 255})
	d.font(fontBold, 12)
	d.cell(marginX, boxY+18, boxW, 20, verdict, gopdf.Center)
	d.font(fontBold, 24)
	d.cell(marginX, boxY+52, boxW, 36, fmt.Sprintf("%d%%", int(math.Round(res.Result.Score))), gopdf.Center)

	statsX := marginX + boxW + 28
	d.color([3]uint8{0, 0, 0})
	d.font(fontRegular, 10)
	d.text(statsX, boxY+10, fmt.Sprintf("Correct Answers: %d / %d", res.Result.CorrectAnswers, res.Result.TotalQuestions))
	d.text(statsX, boxY+38, fmt.Sprintf("Total Points: %d / %d", res.Result.EarnedPoints, res.Result.TotalPoints))
	d.text(statsX, boxY+66, "Time Spent: "+res.Result.TimeSpent)
	d.text(statsX, boxY+94, fmt.Sprintf("Score: %.2f%%", res.Result.Score))

	d.font(fontBold, 14)
	d.text(marginX, tableTopFirst-28, "Answer Details")
}

func (d *drawer) table(rows []model.QuestionOutcome, offset int, top float64) {
	headers := [4]string{"#", "Question", "Status", "Points"}
	width := tableCols[0] + tableCols[1] + tableCols[2] + tableCols[3]

	d.fill(marginX, top, width, rowHeight, colorAccent)
	d.color([3]uint8{255, 255, 255})
	d.font(fontBold, 9)
	x := marginX
	for i, h := range headers {
		d.cell(x+4, top, tableCols[i]-8, rowHeight, h, columnAlign(i))
		x += tableCols[i]
	}

	d.font(fontRegular, 8)
	d.color([3]uint8{30, 30, 30})
	y := top + rowHeight
	for i, q := range rows {
		if i%2 == 1 {
			d.fill(marginX, y, width, rowHeight, colorStripe)
		}
		values := [4]string{
			fmt.Sprint(offset + i + 1),
			Preview(q.Text, questionPreviewLen),
			outcomeLabel(q),
			fmt.Sprint(q.Points),
		}
		x := marginX
		for c, v := range values {
			d.cell(x+4, y, tableCols[c]-8, rowHeight, v, columnAlign(c))
			x += tableCols[c]
		}
		y += rowHeight
	}
}

func (d *drawer) footer(page, total int, sessionID string) {
	d.font(fontRegular, 8)
	d.color([3]uint8{150, 150, 150})
	d.cell(0, footerY, pageWidth, 12,
		fmt.Sprintf("Page %d of %d | CAT App Results | Session ID: %s", page, total, sessionID),
		gopdf.Center)
}

func columnAlign(col int) int {
	if col == 1 {
		return gopdf.Left
	}
	return gopdf.Center
}

func outcomeLabel(q model.QuestionOutcome) string {
	switch {
	case !q.Answered:
		return "Unanswered"
	case q.Correct:
		return "Correct"
	default:
		return "Incorrect"
	}
}

// Preview shortens s to at most n runes, marking the cut with "...".
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the attachment name of a result sheet, e.g.
// CAT-Results-Go-Basics-2026-03-01.pdf.
func Filename(testTitle string, date time.Time) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(testTitle), "-"), "-")
	if slug == "" {
		slug = "Test"
	}
	return fmt.Sprintf("CAT-Results-%s-%s.pdf", slug, date.Format(time.DateOnly))
}
