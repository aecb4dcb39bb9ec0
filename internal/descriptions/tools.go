package descriptions

// Tool descriptions shown to MCP clients

const (
	PDFExtractFieldsDescription = `Extract company fields from a PDF profile using label patterns.

**When to use:** Need the company name, organisation number, address, NACE code, turnover, homepage, employee count or email that a document states, without consulting the registry.

**Examples:**
• "Which organisation number does acme-profile.pdf state?"
• "Check which labels the parser recognises in supplier.pdf before filling the template"

**Output:** JSON with every field (empty string when no label matched) and the list of matched fields.`

	RegistryLookupDescription = `Look up a company in the business registry.

**When to use:** Verify or complete company data. An organisation number gives an exact match; a name falls back to the best search hit.

**Examples:**
• "Look up org number 123 456 789"
• "Find the registry entry for Acme AS"

**Output:** JSON with status (found, not_found, failed), the strategy used, whether the match is trusted (identifier lookups only), the projected fields and the short company summary.`

	PDFFillTemplateDescription = `Fill a spreadsheet template from a company PDF.

**When to use:** Produce the company sheet: fields are extracted from the PDF, replaced with registry data when the company is found, and written into fixed cells of the template together with a short summary.

**Examples:**
• "Fill report-template.xlsx from acme-profile.pdf"
• "Fill template.xlsx from acme.pdf and save it as out/acme.xlsx"

**Output:** JSON with the written path (default <template>_updated.xlsx), the field values, the summary and where they came from. The template file itself is never modified.`

	PDFValidateFileDescription = `Verify that a file is a readable PDF before extracting fields from it.

**Output:** validity, page count and size, or the reason the file was rejected.`

	ServerInfoDescription = `Show mapper configuration: work directory, registry endpoint, target cells and the available tools.`
)

// ToolInfo describes one registered tool for the server info report
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

// Tools lists the tools in registration order
var Tools = []ToolInfo{
	{Name: "pdf_extract_fields", Description: "Extract company fields from a PDF", Parameters: "path (required)"},
	{Name: "registry_lookup", Description: "Look up a company in the business registry", Parameters: "org_number, name (at least one)"},
	{Name: "pdf_fill_template", Description: "Fill a spreadsheet template from a PDF", Parameters: "pdf_path, template_path (required), output_path"},
	{Name: "pdf_validate_file", Description: "Validate that a file is a readable PDF", Parameters: "path (required)"},
	{Name: "mapper_server_info", Description: "Show mapper configuration", Parameters: "none"},
}
