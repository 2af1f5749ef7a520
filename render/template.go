package render

import "html/template"

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.InvoiceNumber}}</title>
<style>
  @page { size: 700mm 500mm; margin: 0; }
  html, body { margin: 0; padding: 0; background: #ffffff; }
  @media print { .canvas { zoom: {{.PrintZoom}}; } }
  .canvas {
    width: 827px; height: 591px; position: relative; overflow: hidden;
    background: #ffffff; color: #1a1a1a;
    font-family: Helvetica, Arial, sans-serif; letter-spacing: 0.15em;
  }
  .header { display: flex; justify-content: space-between; align-items: flex-start; padding: 24px 24px 0 24px; }
  .meta div { font-size: 20px; line-height: 1.3; }
  .meta .number { font-weight: 300; }
  .meta .date { font-weight: 200; margin-top: 4px; }
  .logo { flex-shrink: 0; margin-top: -14px; }
  .logo img { height: 170px; width: 280px; object-fit: contain; display: block; }
  .details { display: flex; flex-direction: column; align-items: center; margin-top: -8px; text-align: center; }
  .details h1 { font-size: 38px; font-weight: 300; letter-spacing: 0.2em; margin: 0 0 18px 0; }
  .customer { font-size: 32px; line-height: 1.4; font-weight: 200; }
  .customer div { margin-bottom: 10px; }
  .customer .address div { margin-bottom: 8px; }
  .footer { position: absolute; bottom: 0; left: 0; right: 0; padding: 0 24px 24px 24px; }
  .pre { font-size: 28px; font-weight: 300; text-align: right; margin-bottom: 8px; }
  .rule { font-size: 20px; font-weight: 200; text-align: center; margin-bottom: 8px; overflow: hidden; white-space: nowrap; }
  .thanks { font-size: 20px; font-weight: 200; text-align: center; }
</style>
</head>
<body>
<div class="canvas" id="invoice">
  <div class="header">
    <div class="meta">
      <div class="number">INVOICE {{.InvoiceNumber}}</div>
      <div class="date">DATE: {{.Date}}</div>
    </div>
    {{- if .Logo}}
    <div class="logo"><img src="{{.Logo}}" alt="logo"></div>
    {{- end}}
  </div>
  <div class="details">
    <h1>DELIVERY DETAILS</h1>
    <div class="customer">
      <div>{{.CustomerName}}</div>
      <div>{{.CustomerPhone}}</div>
      <div class="address">
        {{- range .Address}}
        <div>{{.}}</div>
        {{- end}}
      </div>
    </div>
  </div>
  <div class="footer">
    {{- if .PreCode}}
    <div class="pre">PRE{{.PreCode}}</div>
    {{- end}}
    <div class="rule">************************************************</div>
    <div class="thanks">Thank you for shopping with BU HAIRS!</div>
  </div>
</div>
</body>
</html>
`))
