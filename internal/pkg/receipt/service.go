// internal/pkg/receipt/service.go
package receipt

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/pos-backend/internal/config"
	"github.com/your-org/pos-backend/internal/domain/sale"
)

// Service handles receipt PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new receipt service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// Generate renders a PDF receipt for a finalized sale
func (s *Service) Generate(sl *sale.Sale) (*bytes.Buffer, error) {
	data := receiptData{
		Sale:     sl,
		SoldDate: sl.SoldAt.Format("January 2, 2006 15:04"),
		Company: companyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
		},
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(true)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data receiptData) (string, error) {
	tmpl := template.Must(template.New("receipt").Parse(receiptTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// receiptData represents the data passed to the receipt template
type receiptData struct {
	Sale     *sale.Sale
	SoldDate string
	Company  companyInfo
}

// companyInfo represents company information
type companyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// Receipt HTML template
const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.Sale.InvoiceNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            text-align: center;
            margin-bottom: 20px;
            border-bottom: 2px solid #eee;
            padding-bottom: 15px;
        }
        .header h1 {
            margin: 0 0 5px 0;
            font-size: 22px;
        }
        .header p {
            margin: 2px 0;
            font-size: 12px;
            color: #666;
        }
        .meta {
            margin-bottom: 20px;
            font-size: 13px;
        }
        .meta td {
            padding: 3px 0;
        }
        .meta .label {
            font-weight: bold;
            width: 140px;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 20px;
            font-size: 13px;
        }
        .items-table th,
        .items-table td {
            border-bottom: 1px solid #ddd;
            padding: 8px 6px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .num-col {
            text-align: right;
            width: 70px;
        }
        .totals {
            float: right;
            width: 260px;
            font-size: 13px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 6px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 90px;
        }
        .total-row {
            font-size: 16px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 40px;
            padding-top: 15px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 11px;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Company.Name}}</h1>
        <p>{{.Company.Address}}</p>
        <p>{{.Company.Phone}} | {{.Company.Email}}</p>
    </div>

    <div class="meta">
        <table>
            <tr>
                <td class="label">Receipt #:</td>
                <td>{{.Sale.InvoiceNumber}}</td>
            </tr>
            <tr>
                <td class="label">Date:</td>
                <td>{{.SoldDate}}</td>
            </tr>
            <tr>
                <td class="label">Payment:</td>
                <td>{{.Sale.PaymentMethod}}</td>
            </tr>
        </table>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th class="num-col">Qty</th>
                <th class="num-col">Price</th>
                <th class="num-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Sale.Items}}
            <tr>
                <td>{{.ProductName}}</td>
                <td>{{.ProductSKU}}</td>
                <td class="num-col">{{.Quantity}}{{if eq .PricingMode "weight"}} kg{{end}}</td>
                <td class="num-col">{{.UnitPrice}}</td>
                <td class="num-col">{{.LineTotal}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Subtotal:</td>
                <td class="amount">{{.Sale.Subtotal}}</td>
            </tr>
            {{if .Sale.TotalDiscount.IsPositive}}
            <tr>
                <td class="label">Discount:</td>
                <td class="amount">-{{.Sale.TotalDiscount}}</td>
            </tr>
            {{end}}
            <tr>
                <td class="label">Tax:</td>
                <td class="amount">{{.Sale.TotalTax}}</td>
            </tr>
            <tr class="total-row">
                <td class="label">Total:</td>
                <td class="amount">{{.Sale.FinalTotal}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for shopping with us!</p>
        <p>Questions about this receipt? Contact {{.Company.Email}} or {{.Company.Phone}}</p>
    </div>
</body>
</html>
`
