package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/diewo77/facturas/internal/services"
)

// Generator renders invoices to A4 PDF files in a fixed output directory and
// returns the file name as the document reference. Files are named
// FACTURA_<number>.pdf; re-rendering the same invoice overwrites the file.
type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Generator{outputDir: outputDir}, nil
}

func (g *Generator) Render(_ context.Context, doc services.InvoiceDocument) (string, error) {
	m := buildDocument(doc)
	generated, err := m.Generate()
	if err != nil {
		return "", fmt.Errorf("generate pdf: %w", err)
	}
	name := "FACTURA_" + doc.Number + ".pdf"
	if err := generated.Save(filepath.Join(g.outputDir, name)); err != nil {
		return "", fmt.Errorf("save pdf: %w", err)
	}
	return name, nil
}

func buildDocument(doc services.InvoiceDocument) core.Maroto {
	cfg := config.NewBuilder().WithPageSize(pagesize.A4).Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "FACTURA", props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, "Nº "+doc.Number, props.Text{Size: 12, Align: align.Right, Top: 3}),
	)
	m.AddRow(6, text.NewCol(12, "Fecha: "+doc.Date, props.Text{Size: 10, Align: align.Right}))

	m.AddRow(8, text.NewCol(12, doc.Client.Name, props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}))
	if addr := clientAddress(doc); addr != "" {
		m.AddRow(5, text.NewCol(12, addr, props.Text{Size: 9}))
	}
	if doc.Client.TaxID != "" {
		m.AddRow(5, text.NewCol(12, "NIF: "+doc.Client.TaxID, props.Text{Size: 9}))
	}

	m.AddRow(8,
		text.NewCol(4, "Concepto", headerProps()),
		text.NewCol(3, "Descripción", headerProps()),
		text.NewCol(1, "Uds.", headerRight()),
		text.NewCol(2, "Precio", headerRight()),
		text.NewCol(2, "Importe", headerRight()),
	)
	for _, l := range doc.Lines {
		m.AddRow(6,
			text.NewCol(4, l.Name, cellProps()),
			text.NewCol(3, l.Description, cellProps()),
			text.NewCol(1, strconv.Itoa(l.Quantity), cellRight()),
			text.NewCol(2, money(l.UnitPrice), cellRight()),
			text.NewCol(2, money(l.LineTotal), cellRight()),
		)
	}

	m.AddRow(10, text.NewCol(12, "Desglose de IVA", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(7,
		text.NewCol(3, "Tipo", headerProps()),
		text.NewCol(3, "Base imponible", headerRight()),
		text.NewCol(3, "Cuota", headerRight()),
		text.NewCol(3, "Total", headerRight()),
	)
	for _, b := range doc.Breakdown.Buckets {
		m.AddRow(6,
			text.NewCol(3, rate(b.Rate), cellProps()),
			text.NewCol(3, money(b.Base), cellRight()),
			text.NewCol(3, money(b.Tax), cellRight()),
			text.NewCol(3, money(b.Total), cellRight()),
		)
	}

	m.AddRow(10,
		text.NewCol(8, "", cellProps()),
		text.NewCol(4, "TOTAL  "+money(doc.Breakdown.GrandTotal),
			props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)
	return m
}

func clientAddress(doc services.InvoiceDocument) string {
	addr := doc.Client.Address
	locality := doc.Client.PostalCode
	if doc.Client.Locality != "" {
		if locality != "" {
			locality += " "
		}
		locality += doc.Client.Locality
	}
	if doc.Client.Region != "" {
		if locality != "" {
			locality += " (" + doc.Client.Region + ")"
		} else {
			locality = doc.Client.Region
		}
	}
	if addr != "" && locality != "" {
		return addr + ", " + locality
	}
	return addr + locality
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " €"
}

func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func headerProps() props.Text {
	return props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}
}

func headerRight() props.Text {
	p := headerProps()
	p.Align = align.Right
	return p
}

func cellProps() props.Text {
	return props.Text{Size: 9, Top: 1}
}

func cellRight() props.Text {
	p := cellProps()
	p.Align = align.Right
	return p
}
