package llm

import (
	"strings"

	"github.com/logman117/ai-manufacturing-vision/constants"
)

const textExcerptLimit = 3000

var processPromptHints = map[string]string{
	"laser_cut":             "Does this part require laser cutting?",
	"saw_shear":             "Does this part require saw or shear cutting?",
	"break_press":           "Does this part require brake press/bending operations?",
	"fab":                   "Does this part require general fabrication operations?",
	"weld":                  "Does this part require welding? (look for weld symbols, weldment callouts)",
	"painting":              "Does this part require painting/coating? (look for finish callouts)",
	"heat_treat":            "Does this part require heat treatment?",
	"plating":               "Does this part require plating? (look for \"zinc plated\", \"chrome\", etc.)",
	"cnc_machining_turning": "Does this part require CNC machining or turning? (look for tight tolerances, threaded holes, machined features)",
	"metal_rolling":         "Does this part require metal rolling?",
	"casting_forging":       "Is this a cast or forged part?",
	"tube_bending":          "Does this part require tube bending?",
	"metal_spinning":        "Does this part require metal spinning?",
	"turret_punch_stamping": "Does this part require turret punch or metal stamping?",
	"press":                 "Does this part require press operations?",
	"inserts":               "Does this part require inserts? (look for threaded inserts, press-fit inserts)",
}

// BuildSystemPrompt returns the fixed system message for drawing analysis.
func BuildSystemPrompt() string {
	return "You are an expert manufacturing engineer who analyzes technical drawings " +
		"and specifications. Return ONLY a JSON object that matches the provided JSON Schema. " +
		"Do not include any other text."
}

// BuildUserPrompt composes the analysis task: the extracted text excerpt, the
// requested output fields, and the per-process guidance. The drawing page
// images are attached to the same message by the client.
func BuildUserPrompt(extractedText string) string {
	var b strings.Builder

	b.WriteString("Based on the attached technical drawing image(s) and the extracted text below, ")
	b.WriteString("predict which manufacturing processes are required for this part.\n\n")

	b.WriteString("Text content from drawing (truncated):\n")
	excerpt := strings.TrimSpace(extractedText)
	if len(excerpt) > textExcerptLimit {
		excerpt = excerpt[:textExcerptLimit]
	}
	b.WriteString(excerpt)
	b.WriteString("\n\n")

	b.WriteString("Return a JSON object with these fields:\n")
	b.WriteString("- complexity_level: exactly one of \"Simple\", \"Moderate\", \"Complex\", \"Very Complex\"\n")
	b.WriteString("- part_type: type of part (e.g. \"Bracket\", \"Shaft\", \"Assembly\", \"Fastener\", \"Weldment\")\n")
	b.WriteString("- part_name: the name/description of the part from the drawing\n")
	b.WriteString("- material: material specification (e.g. \"Steel\", \"Aluminum\", \"Stainless Steel\")\n")
	b.WriteString("- notes: any important notes or special requirements\n\n")

	b.WriteString("Binary manufacturing process indicators (0 or 1). For each, return 1 if the part requires it, 0 if not:\n")
	for _, key := range constants.ProcessKeys {
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(processPromptHints[key])
		b.WriteString("\n")
	}

	b.WriteString("\nAnalysis guidelines:\n")
	b.WriteString("- Look for weld symbols (triangles, specific weld callouts) to identify welding\n")
	b.WriteString("- Check material callouts and notes for plating requirements\n")
	b.WriteString("- Tight tolerances and threaded holes suggest CNC machining\n")
	b.WriteString("- Look for bend lines and brake symbols for brake press operations\n")
	b.WriteString("- Check the notes section for special processes like heat treatment\n")
	b.WriteString("- For assemblies, consider the main fabrication process\n")

	return b.String()
}
