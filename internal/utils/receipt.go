package utils

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"medimart_back_end/internal/models"
)

// FormatRand affiche un montant en rands, ex. "R99.98".
func FormatRand(amount float64) string {
	return fmt.Sprintf("R%.2f", amount)
}

// GenerateCollectionQR génère le QR de retrait en pharmacie (référence de
// commande) en base64 prêt à mettre dans <img src="...">
func GenerateCollectionQR(reference string) (string, error) {
	png, err := qrcode.Encode(reference, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateReceiptHTML génère le HTML du reçu de paiement
func GenerateReceiptHTML(order models.Order, qrBase64 string) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%s</td>
				<td>%s</td>
			</tr>`, item.Name, item.Quantity, FormatRand(item.Price), FormatRand(item.Price*float64(item.Quantity)))
	}

	qrHTML := ""
	if qrBase64 != "" {
		qrHTML = fmt.Sprintf(`
		<p>Show this code when collecting your order:</p>
		<img src="%s" alt="Collection QR" width="160" height="160" />`, qrBase64)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Payment receipt</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Thank you for your order</h2>
		<p>Your payment was received. Reference: <strong>%s</strong></p>

		<h3>Order details</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Product</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantity</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Unit price</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 10px; font-weight: bold;">%s</td>
				</tr>
			</tfoot>
		</table>
		%s

		<p style="margin-top: 30px; color: #555;">
			Kind regards,<br>
			<strong>The Medimart team</strong>
		</p>
	</div>
</body>
</html>`, order.Reference, itemsHTML, FormatRand(order.TotalPrice), qrHTML)
}
