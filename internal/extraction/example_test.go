package extraction_test

import (
	"fmt"
	"strconv"

	"ocrscan/internal/extraction"
)

// Example demonstrates processing the text of a scanned ID card receipt.
func Example() {
	p := extraction.NewProcessor()

	result := p.Process(`ใบเสร็จรับเงิน
ยอดรวม 1,234.56 บาท
เลขประจำตัวประชาชน 1101700203450
วันที่ 15-01-2565`)

	fmt.Println(result.State, result.Succeeded)
	fmt.Println(result.IdentifiedNumber)
	fmt.Println(result.IdentifiedDate)
	fmt.Printf("%.2f\n", *result.IdentifiedAmount)
	// Output:
	// processed true
	// 1101700203450
	// 2565-01-15
	// 1234.56
}

// ExampleCheckDigit builds a valid identifier from a 12-digit payload.
func ExampleCheckDigit() {
	payload := "123456789012"
	d, err := extraction.CheckDigit(payload)
	if err != nil {
		fmt.Println(err)
		return
	}
	id := payload + strconv.Itoa(d)
	fmt.Println(id, extraction.ValidateThaiID(id))
	// Output: 1234567890121 true
}

// ExampleProcessor_Process_invalidIdentifier shows that a failed checksum is
// reported with the offending value.
func ExampleProcessor_Process_invalidIdentifier() {
	p := extraction.NewProcessor()
	result := p.Process("ID 1234567890123")

	fmt.Println(result.State)
	fmt.Println(result.ErrorMessage)
	// Output:
	// error
	// invalid identifier: 1234567890123
}
