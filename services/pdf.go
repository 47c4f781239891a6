package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type PDFData struct {
	TravelerName string
	Trip         TripRequest
	Itinerary    ItineraryData
	Cost         CostBreakdown
	// Notes are keyed by day number.
	Notes map[int][]string
}

// estimated reports whether any flight or hotel came from a non-provider source.
func (d PDFData) estimated() bool {
	for _, f := range d.Itinerary.Flights {
		if f.Source != SourceProvider {
			return true
		}
	}
	for _, h := range d.Itinerary.Hotels {
		if h.Source != SourceProvider {
			return true
		}
	}
	return false
}

type rgb struct{ r, g, b int }

var (
	colNavy  = rgb{13, 24, 37}
	colGold  = rgb{212, 168, 67}
	colCream = rgb{255, 248, 225}
	colBrown = rgb{130, 90, 20}
	colMuted = rgb{100, 100, 100}
	colInk   = rgb{20, 20, 20}
	colWhite = rgb{255, 255, 255}
)

// itineraryPDF wraps gofpdf with the document's palette and building blocks.
type itineraryPDF struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func (p *itineraryPDF) fill(c rgb)   { p.SetFillColor(c.r, c.g, c.b) }
func (p *itineraryPDF) ink(c rgb)    { p.SetTextColor(c.r, c.g, c.b) }
func (p *itineraryPDF) stroke(c rgb) { p.SetDrawColor(c.r, c.g, c.b) }

func (p *itineraryPDF) section(title string) {
	p.fill(colNavy)
	p.ink(colWhite)
	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(170, 8, "  "+p.tr(title), "", 1, "L", true, 0, "")
	p.ink(colInk)
	p.Ln(2)
}

func (p *itineraryPDF) field(label, value string) {
	p.SetFont("Helvetica", "", 10)
	p.ink(colMuted)
	p.CellFormat(55, 7, p.tr(label), "", 0, "L", false, 0, "")
	p.SetFont("Helvetica", "B", 10)
	p.ink(colInk)
	p.CellFormat(115, 7, p.tr(value), "", 1, "L", false, 0, "")
}

func (p *itineraryPDF) banner(title, subtitle string) {
	p.fill(colNavy)
	p.Rect(0, 0, 210, 30, "F")
	p.SetXY(20, 8)
	p.ink(colWhite)
	p.SetFont("Helvetica", "B", 18)
	p.CellFormat(170, 10, p.tr(title), "", 1, "L", false, 0, "")
	p.SetX(20)
	p.ink(colGold)
	p.SetFont("Helvetica", "", 10)
	p.CellFormat(170, 6, p.tr(subtitle), "", 1, "L", false, 0, "")
	p.SetY(37)
}

func (p *itineraryPDF) notice(text string) {
	top := p.GetY()
	p.fill(colCream)
	p.stroke(colGold)
	p.SetLineWidth(0.4)
	p.Rect(20, top, 170, 12, "FD")
	p.SetXY(23, top+2)
	p.ink(colBrown)
	p.SetFont("Helvetica", "I", 8)
	p.MultiCell(164, 4, p.tr(text), "", "C", false)
	p.SetLineWidth(0.2)
	p.stroke(rgb{})
	p.ink(rgb{})
	p.SetY(top + 18)
}

// GeneratePDFBytes renders the itinerary and returns raw PDF bytes.
func GeneratePDFBytes(data PDFData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	p := &itineraryPDF{Fpdf: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 25)

	p.SetFooterFunc(func() {
		p.SetY(-15)
		p.SetFont("Helvetica", "I", 8)
		p.ink(rgb{150, 150, 150})
		p.CellFormat(0, 8, fmt.Sprintf("Not a booking confirmation - Prices subject to change - Page %d", p.PageNo()),
			"", 0, "C", false, 0, "")
	})
	p.AddPage()

	p.banner(strings.Join(data.Trip.Destinations, " - "), "Travel Itinerary")

	if data.estimated() {
		p.notice("ESTIMATED PRICES - some flights or hotels use generated data. This is NOT a booking confirmation.")
	} else {
		p.notice("This is NOT a booking confirmation. Prices are estimates and subject to change. Please verify with providers before booking.")
	}

	p.section("Trip Overview")
	traveler := data.TravelerName
	if traveler == "" {
		traveler = "Guest Traveler"
	}
	route := append([]string{data.Trip.OriginCity}, data.Trip.Destinations...)
	route = append(route, data.Trip.OriginCity)
	p.field("Traveler", traveler)
	p.field("Route", strings.Join(route, " > "))
	p.field("Dates", fmt.Sprintf("%s to %s", fmtDateReadable(data.Trip.StartDate), fmtDateReadable(data.Trip.EndDate)))
	p.field("Purpose", string(data.Trip.Purpose))
	p.field("Travelers", fmt.Sprintf("%d", data.Trip.Travelers))
	p.field("Generated", time.Now().UTC().Format("02 Jan 2006, 15:04 UTC"))
	p.Ln(4)

	if len(data.Itinerary.Flights) > 0 {
		p.section("Flights")
		for _, f := range data.Itinerary.Flights {
			p.field(fmt.Sprintf("%s > %s", f.From, f.To), formatFlightLeg(f))
		}
		p.Ln(4)
	}

	if len(data.Itinerary.Hotels) > 0 {
		p.section("Hotels")
		for _, h := range data.Itinerary.Hotels {
			p.field(h.City, h.Name)
			p.field("", fmt.Sprintf("%s to %s, $%d/night x %d nights = $%d",
				h.CheckInDate, h.CheckOutDate, h.PricePerNight, h.Nights, h.TotalPrice))
		}
		p.Ln(4)
	}

	p.section("Day by Day")
	for _, d := range data.Itinerary.Days {
		p.SetFont("Helvetica", "B", 10)
		p.ink(colNavy)
		p.CellFormat(170, 7, p.tr(fmt.Sprintf("Day %d - %s - %s", d.Day, d.Date, d.City)), "B", 1, "L", false, 0, "")
		p.SetFont("Helvetica", "", 9)
		p.ink(rgb{40, 40, 40})
		for _, a := range d.Activities {
			p.CellFormat(22, 5, p.tr(a.Time), "", 0, "L", false, 0, "")
			p.MultiCell(148, 5, p.tr(fmt.Sprintf("%s (%s) - %s", a.Title, a.Duration, a.Description)), "", "L", false)
		}
		p.SetFont("Helvetica", "I", 9)
		p.ink(colBrown)
		for _, n := range data.Notes[d.Day] {
			p.MultiCell(170, 5, p.tr("Note: "+n), "", "L", false)
		}
		p.Ln(2)
	}
	p.Ln(2)

	p.section("Cost Estimate")
	p.field("Flights (all travelers)", fmt.Sprintf("$%d", data.Cost.FlightsTotal))
	p.field("Hotels", fmt.Sprintf("$%d", data.Cost.HotelsTotal))
	p.fill(colGold)
	p.ink(colNavy)
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(55, 9, "TOTAL ESTIMATE", "", 0, "L", true, 0, "")
	p.CellFormat(115, 9, fmt.Sprintf("$%d", data.Cost.Total), "", 1, "L", true, 0, "")
	p.ink(colMuted)
	p.SetFont("Helvetica", "I", 8)
	p.CellFormat(170, 6, "Activity costs are not included.", "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := p.Output(&out); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return out.Bytes(), nil
}

func fmtDateReadable(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("02 Jan 2006 (Mon)")
}

func formatFlightLeg(f FlightLeg) string {
	s := fmt.Sprintf("%s %s", f.Date, f.Airline)
	if f.FlightNumber != "" {
		s += " " + f.FlightNumber
	}
	if f.DepartureTime != "" && f.ArrivalTime != "" {
		s += fmt.Sprintf(", %s-%s", f.DepartureTime, f.ArrivalTime)
	}
	if f.Duration != "" {
		s += fmt.Sprintf(" (%s)", f.Duration)
	}
	return s + fmt.Sprintf(", $%d pp", f.PricePerPerson)
}
