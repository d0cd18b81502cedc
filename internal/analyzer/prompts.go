package analyzer

import "google.golang.org/genai"

const segmentationRules = `**Sentence Segmentation:**
    -   A "sentence" ends with a terminal punctuation mark (e.g., period。) or is the entire content within quotation marks (e.g., 「...」).
    -   Paragraph breaks (newlines) are critical. A newline from the original text MUST be included as a separate token with ` + "`pos: 'Linebreak'`" + ` and ` + "`surface: '\\n'`" + `. This ` + "`Linebreak`" + ` token must be the **very last token** in the ` + "`japaneseWords`" + ` array for the sentence that precedes the newline.`

const tokenizationRules = `**Tokenization Rules:** A "token" is a meaningful word or punctuation mark.
    -   **CRITICAL RULE:** Do not split inflected forms of words or compound particles. Treat them as single tokens.
    -   **Example 1:** The word 「叱られる」 is a single passive-form verb. It must be ONE token, { "surface": "叱られる" }. It is INCORRECT to split it into [{ "surface": "叱ら" }, { "surface": "れる" }].
    -   **Example 2:** The compound particle 「だって」 must be ONE token, { "surface": "だって" }. It is INCORRECT to split it into [{ "surface": "だ" }, { "surface": "っ" }, { "surface": "て" }].
    -   **Example 3:** 「言うのに」 should be segmented into TWO tokens: the verb 言う and the particle のに. { "surface": "言う" }, { "surface": "のに" }.`

const tokenAnalysis = `For each token (word, punctuation, or newline), provide its surface, reading, part of speech (pos), JLPT level, a concise Traditional Chinese (繁體中文) definition, and an 'isEssential' boolean flag.`

const outputFormat = `**Output Format:** Return a single JSON object that strictly adheres to the provided schema. The root object must have a "sentences" key, containing an array of sentence objects.`

// TextPrompt asks for the analysis of text
func TextPrompt(text string) string {
	return `
Analyze the following Japanese text, performing a detailed sentence-by-sentence, word-by-word analysis. Follow these rules strictly:

1.  ` + segmentationRules + `

2.  ` + tokenizationRules + `

3.  **Token Analysis:** ` + tokenAnalysis + `

4.  **Translation:** Provide a corresponding Traditional Chinese (繁體中文) translation for each sentence.

5.  ` + outputFormat + ` Each sentence object must have "japaneseWords" and "chineseTranslation".

Original Text:
"` + text + `"
`
}

const imagePrompt = `
Extract the Japanese text from this image. Then, perform a detailed sentence-by-sentence, word-by-word analysis. Follow these rules strictly:

1.  ` + segmentationRules + `

2.  ` + tokenizationRules + `

3.  **Token Analysis:** ` + tokenAnalysis + `

4.  **Translation:** Provide a corresponding Traditional Chinese (繁體中文) translation for each sentence.

5.  ` + outputFormat + ` Each sentence object must have "japaneseWords" and "chineseTranslation".
`

const alignedImagePrompt = `You will be given two images: one with Japanese text, one with its Chinese translation. Your job is to extract, align, and analyze the text. Follow these rules strictly:

1.  **Extract & Align:** Extract all text from both images and align them sentence by sentence.

2.  ` + segmentationRules + `

3.  ` + tokenizationRules + `

4.  **Token Analysis (for Japanese text):** ` + tokenAnalysis + `

5.  ` + outputFormat + ` Each sentence object must have a "japaneseWords" array (the analysis) and a "chineseTranslation" string (from the second image). If a translation cannot be found, return an empty string.
`

const essentialDescription = `Determines if a word is part of the sentence's core grammatical structure. The goal is to isolate a minimal, grammatically complete sentence.
- **ESSENTIAL (isEssential: true):** Subject, object, main verbs, copulas (です, である), and all grammatical particles (e.g., は, が, を, に, へ, で, と, も, の). Also includes interrogative words (e.g., どこ, 何). All punctuation is essential.
- **NON-ESSENTIAL (isEssential: false):** All descriptive adverbs (e.g., とても, ゆっくり, とんと, 全然), descriptive adjectives that modify nouns (e.g., 美しい猫 -> 美しい is non-essential), and interjections unless they form the entire sentence.
The rule is strict: if a word is purely descriptive and the sentence remains grammatically valid without it, it MUST be marked false. For example, in 'とても美しい猫', both 'とても' and '美しい' are non-essential. In 'どこで生れたかとんと見当がつかぬ', the adverb 'とんと' is non-essential.`

func stringProp(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

// ResponseSchema describes the JSON shape of an analysis
func ResponseSchema() *genai.Schema {
	word := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"surface":     stringProp("The word or punctuation mark as it appears in the text."),
			"reading":     stringProp("The reading of the word in Hiragana. For punctuation, this can be the same as the surface form."),
			"pos":         stringProp("The part of speech (e.g., Noun, Verb, Adjective, Particle, 句読点 for punctuation, Linebreak for newlines)."),
			"jlpt":        stringProp("The JLPT level of the word (N5, N4, N3, N2, N1, or Unknown). For punctuation, use 'Unknown'."),
			"definition":  stringProp("A concise Traditional Chinese (繁體中文) definition. For punctuation, provide its name (e.g., 'Period', 'Comma'). For newlines, this can be empty."),
			"sentiment":   stringProp("The emotional or atmospheric sentiment of the word. Not applicable to punctuation."),
			"isEssential": {Type: genai.TypeBoolean, Description: essentialDescription},
		},
		Required: []string{"surface", "reading", "pos", "jlpt", "definition", "isEssential"},
	}

	sentence := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"japaneseWords": {
				Type:        genai.TypeArray,
				Description: "An array of segmented words, punctuation, and newlines for a single Japanese sentence.",
				Items:       word,
			},
			"chineseTranslation": stringProp("The corresponding Traditional Chinese (繁體中文) translation for this sentence. Must be provided, even if it's an empty string."),
		},
		Required: []string{"japaneseWords", "chineseTranslation"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentences": {
				Type:        genai.TypeArray,
				Description: "A list of sentences from the text, each containing its word analysis and optional translation.",
				Items:       sentence,
			},
		},
		Required: []string{"sentences"},
	}
}
