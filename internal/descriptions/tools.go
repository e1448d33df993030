package descriptions

import "sort"

// Tool names exposed over MCP.
const (
	ToolGenerate      = "invoice_generate"
	ToolAmountInWords = "invoice_amount_in_words"
	ToolInspect       = "invoice_inspect"
	ToolList          = "invoice_list"
	ToolServerInfo    = "invoice_server_info"
)

// Tool descriptions with practical examples and use cases
const (
	InvoiceGenerateDescription = `Create the next numbered invoice PDF from a delivery.

**When to use:** A delivery has been made and needs billing. Supply the delivery date, vehicle number, quantity in metric tons and unit price in rupees.

**What you get:** The file name (Invoice_<n>.pdf), the invoice number, the total and the total written out in Indian-system words. The invoice number is only used up when the file is written, so a rejected request leaves the sequence untouched.

**Examples:**
• "Bill vehicle JW-1237 for 40.330 tons at 39500 delivered 2025-06-14"
• "Raise an invoice for today's coal delivery, 12.5 tons at Rs41,000"

**Best practices:** Dates in YYYY-MM-DD are printed as DD-MM-YYYY; other formats are printed unchanged. Quantity and price accept numbers or numeric strings and must not be negative.`

	InvoiceAmountInWordsDescription = `Write a whole-rupee amount in words using lakh and crore grouping.

**When to use:** Checking how a total will read on an invoice, or filling a cheque or voucher.

**Examples:**
• 1593035 → "Fifteen Lakh, Ninety Three Thousand, Thirty Five Rupees Only"
• 100000 → "One Lakh Rupees Only"
• 0 → "Zero"

**Best practices:** Pass the integer part only; invoices truncate paise before converting.`

	InvoiceInspectDescription = `Read back a generated invoice: validity, page count, embedded invoice properties and extracted text.

**When to use:** Confirming what was billed on an earlier invoice, or checking a file before sending it to a customer.

**Examples:**
• "What was the total on Invoice_312.pdf?"
• "Show the vehicle number stored in Invoice_318.pdf"

**Best practices:** Pass a file name from invoice_list. Paths outside the invoice directory are refused.`

	InvoiceListDescription = `List generated invoices, newest number first, with sizes and modification times.

**When to use:** Finding an invoice to inspect or download, or checking the latest number issued.

**Common workflows:**
1. invoice_list → pick a file → invoice_inspect
2. invoice_generate → invoice_list to confirm the new file`

	InvoiceServerInfoDescription = `Get server information: invoice directory, next invoice number, billing parties, recent invoices and available tools.

**When to use:** Start here to see what this server bills, under which names, and which number comes next.`
)

// ToolSummaries holds the one-line descriptions registered with each tool.
var ToolSummaries = map[string]string{
	ToolGenerate:      "Generate the next numbered invoice PDF for a delivery",
	ToolAmountInWords: "Convert a whole-rupee amount to Indian-system words",
	ToolInspect:       "Read back a generated invoice's properties and text",
	ToolList:          "List generated invoices, newest first",
	ToolServerInfo:    "Get server information, next invoice number and usage guidance",
}

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	ToolGenerate:      InvoiceGenerateDescription,
	ToolAmountInWords: InvoiceAmountInWordsDescription,
	ToolInspect:       InvoiceInspectDescription,
	ToolList:          InvoiceListDescription,
	ToolServerInfo:    InvoiceServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetToolSummary returns the one-line description for a tool
func GetToolSummary(toolName string) string {
	if summary, exists := ToolSummaries[toolName]; exists {
		return summary
	}
	return ""
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
