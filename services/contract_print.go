package services

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/krshsl/rentdesk/models"
)

// printView is the display-string form of a contract used by the print page
type printView struct {
	Number       string
	Status       string
	Overdue      bool
	Customer     string
	CustomerID   string
	License      string
	Phone        string
	Company      string
	Vehicle      string
	VIN          string
	Start        string
	End          string
	Days         int
	DailyRate    string
	AddOns       []printLine
	AddOnTotal   string
	Insurance    string
	Total        string
	Deposit      string
	MileageOut   int
	MileageIn    string
	StatusReason string
	Notes        string
	PrintedAt    string
	PrintedBy    string
}

type printLine struct {
	Name  string
	Price string
}

var contractPrintTemplate = template.Must(template.New("contract").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Contract {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; margin-bottom: 0; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ccc; padding: .4rem .6rem; text-align: left; }
th { background: #f4f4f4; width: 30%; }
.status { text-transform: uppercase; font-weight: bold; }
.signatures { display: flex; justify-content: space-between; margin-top: 4rem; }
.signatures div { border-top: 1px solid #222; width: 40%; padding-top: .3rem; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>Rental contract {{.Number}}</h1>
<p class="status">{{.Status}}{{if .Overdue}} (overdue){{end}}</p>

<table>
<tr><th>Customer</th><td>{{.Customer}}</td></tr>
<tr><th>National ID</th><td>{{.CustomerID}}</td></tr>
<tr><th>License</th><td>{{.License}}</td></tr>
<tr><th>Phone</th><td>{{.Phone}}</td></tr>
{{if .Company}}<tr><th>Company</th><td>{{.Company}}</td></tr>{{end}}
</table>

<table>
<tr><th>Vehicle</th><td>{{.Vehicle}}</td></tr>
<tr><th>VIN</th><td>{{.VIN}}</td></tr>
<tr><th>Mileage out</th><td>{{.MileageOut}}</td></tr>
{{if .MileageIn}}<tr><th>Mileage in</th><td>{{.MileageIn}}</td></tr>{{end}}
</table>

<table>
<tr><th>Start date</th><td>{{.Start}}</td></tr>
<tr><th>End date</th><td>{{.End}}</td></tr>
<tr><th>Duration</th><td>{{.Days}} day(s)</td></tr>
<tr><th>Daily rate</th><td>{{.DailyRate}}</td></tr>
{{range .AddOns}}<tr><th>Add-on: {{.Name}}</th><td>{{.Price}} / day</td></tr>
{{end}}{{if .AddOns}}<tr><th>Add-ons per day</th><td>{{.AddOnTotal}}</td></tr>{{end}}
{{if .Insurance}}<tr><th>Insurance per day</th><td>{{.Insurance}}</td></tr>{{end}}
<tr><th>Total</th><td><strong>{{.Total}}</strong></td></tr>
<tr><th>Deposit</th><td>{{.Deposit}}</td></tr>
</table>

{{if .StatusReason}}<p><strong>Status reason:</strong> {{.StatusReason}}</p>{{end}}
{{if .Notes}}<p><strong>Notes:</strong> {{.Notes}}</p>{{end}}

<div class="signatures"><div>Customer signature</div><div>Agent signature</div></div>
<p><small>Printed {{.PrintedAt}}{{if .PrintedBy}} by {{.PrintedBy}}{{end}}</small></p>
</body>
</html>
`))

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func newPrintView(c *models.Contract, printedBy string, now time.Time) printView {
	v := printView{
		Number:       c.ContractNumber,
		Status:       statusLabel(c.Status),
		Overdue:      c.Overdue,
		Start:        c.StartDate.Format("2006-01-02"),
		End:          c.EndDate.Format("2006-01-02"),
		Days:         c.DurationDays,
		DailyRate:    money(c.DailyRate),
		AddOnTotal:   money(c.AddOnDailyTotal),
		Total:        money(c.TotalAmount),
		Deposit:      money(c.Deposit),
		MileageOut:   c.MileageOut,
		StatusReason: c.StatusReason,
		Notes:        c.Notes,
		PrintedAt:    now.Format("2006-01-02 15:04"),
		PrintedBy:    printedBy,
	}
	if c.InsuranceDaily > 0 {
		v.Insurance = money(c.InsuranceDaily)
	}
	if c.MileageIn != nil {
		v.MileageIn = fmt.Sprintf("%d", *c.MileageIn)
	}
	if c.Customer != nil {
		v.Customer = c.Customer.FullName
		v.CustomerID = c.Customer.NationalID
		v.License = c.Customer.LicenseNumber
		v.Phone = c.Customer.Phone
	}
	if c.Company != nil {
		v.Company = c.Company.Name
	}
	if c.Vehicle != nil {
		v.Vehicle = c.Vehicle.PlateNumber
		if c.Vehicle.Year > 0 {
			v.Vehicle = fmt.Sprintf("%s (%d)", c.Vehicle.PlateNumber, c.Vehicle.Year)
		}
		v.VIN = c.Vehicle.VIN
	}
	for _, a := range c.AddOns {
		v.AddOns = append(v.AddOns, printLine{Name: a.Name, Price: money(a.DailyPrice)})
	}
	return v
}

// renderContract writes the printable HTML page of a contract
func renderContract(w io.Writer, c *models.Contract, printedBy string, now time.Time) error {
	return contractPrintTemplate.Execute(w, newPrintView(c, printedBy, now))
}
