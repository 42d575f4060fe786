package services

import (
	"bytes"
	"fmt"
	"html/template"

	"modestblooming-backend/models"
)

var emailTemplates = template.Must(template.New("email").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}).Parse(`
{{define "layout-start"}}<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><title>Modest Blooming</title></head>
<body style="font-family: Georgia, serif; background:#faf7f2; padding:24px;">
<div style="max-width:560px; margin:auto; background:#fff; padding:24px; border-radius:8px;">
<h2 style="color:#5b6b4f;">Modest Blooming</h2>{{end}}
{{define "layout-end"}}</div></body></html>{{end}}

{{define "verify"}}{{template "layout-start"}}
<p>Hi {{.Name}},</p>
<p>Please confirm your email address to finish setting up your account.</p>
<p><a href="{{.Link}}" style="background:#5b6b4f; color:#fff; padding:10px 18px; text-decoration:none; border-radius:4px;">Verify email</a></p>
<p>This link expires in 24 hours.</p>
{{template "layout-end"}}{{end}}

{{define "reset"}}{{template "layout-start"}}
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}" style="background:#5b6b4f; color:#fff; padding:10px 18px; text-decoration:none; border-radius:4px;">Choose a new password</a></p>
<p>This link expires in 1 hour. If you did not ask for it you can ignore this email.</p>
{{template "layout-end"}}{{end}}

{{define "order"}}{{template "layout-start"}}
<p>Thank you for your order.</p>
<table style="width:100%; border-collapse:collapse;">
<tr><th align="left">Item</th><th>Qty</th><th align="right">Total</th></tr>
{{range .Items}}<tr><td>{{.Name}}{{if .Color}} ({{.Color}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .LineTotal}}</td></tr>
{{end}}
<tr><td colspan="2" align="right">Subtotal</td><td align="right">{{money .Subtotal}}</td></tr>
<tr><td colspan="2" align="right">Shipping</td><td align="right">{{money .Shipping}}</td></tr>
<tr><td colspan="2" align="right"><b>Total</b></td><td align="right"><b>{{money .Total}}</b></td></tr>
</table>
<p>Order reference: {{.ID.Hex}}</p>
{{template "layout-end"}}{{end}}
`))

type linkMail struct {
	Name string
	Link string
}

func VerifyEmailHTML(name, link string) (string, error) {
	return render("verify", linkMail{Name: name, Link: link})
}

func ResetPasswordHTML(name, link string) (string, error) {
	return render("reset", linkMail{Name: name, Link: link})
}

func OrderConfirmationHTML(order models.Order) (string, error) {
	return render("order", order)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
