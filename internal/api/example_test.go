package api_test

import (
	"fmt"

	"invoicedesk/internal/api"
	"invoicedesk/pkg/models"
)

// ExampleNormalize shows the three response shapes the backend has used for
// a single invoice.
func ExampleNormalize() {
	payloads := []string{
		`{"success":true,"data":{"id":7,"invoiceNumber":"INV-7"}}`,
		`{"id":7,"invoiceNumber":"INV-7"}`,
		`{"success":false,"message":"Invoice not found"}`,
	}

	for _, payload := range payloads {
		res := api.Normalize[models.Invoice]([]byte(payload), api.MsgLoadFailed)
		if !res.OK {
			fmt.Println("failed:", res.Message)
			continue
		}
		fmt.Println(res.Value.ID, res.Value.InvoiceNumber)
	}

	// Output:
	// 7 INV-7
	// 7 INV-7
	// failed: Invoice not found
}

// ExampleNormalizeUpload shows an upload that returned only an identifier;
// the caller fetches the record afterwards.
func ExampleNormalizeUpload() {
	res := api.NormalizeUpload([]byte(`{"success":true,"invoiceId":12,"message":"Processed"}`))

	fmt.Println(res.OK, res.Value.NeedsFetch(), res.Value.InvoiceID)
	// Output: true true 12
}
