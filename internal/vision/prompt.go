package vision

import "fmt"

// jsonShape is the strict output contract shared by both prompt languages.
const jsonShape = `{
  "nutrition": {
    "calories": 0, "protein": 0, "fat": 0, "carbs": 0, "sugar": 0,
    "sodium": 0, "fiber": 0, "cholesterol": 0, "calcium": 0,
    "iron": 0, "potassium": 0
  },
  "health_score": 0,
  "grade": "A/B/C/D/E",
  "summary": "string",
  "pros": ["string"],
  "cons": ["string"],
  "ingredients": "string",
  "warnings": ["string"]
}`

const analysisPromptID = `Kamu adalah ahli gizi. Analisis gambar label nilai gizi ini.
Tugasmu:
1. Baca tabel 'Informasi Nilai Gizi' atau 'Nutrition Facts' pada gambar.
2. Ekstrak angka untuk: kalori, protein, lemak, karbohidrat, gula, natrium, serat, kolesterol, kalsium, zat besi, dan kalium. Gunakan satuan gram untuk makro dan mg untuk natrium.
3. Baca Komposisi/Ingredients jika terlihat, sebutkan dalam "ingredients".
4. Berikan health_score 0-100 dan grade sesuai rentang: >80 A, 65-80 B, 50-64 C, 35-49 D, <35 E.
5. Isi "summary" maksimal 2 kalimat, "pros" dan "cons" masing-masing maksimal 3 poin singkat, dan "warnings" untuk alergen atau bahan yang perlu diwaspadai.
Jika label sulit dibaca, PERKIRAKAN nilai yang wajar, jangan isi semua dengan nol.

Jawab HANYA dengan JSON persis berbentuk:
%s`

const analysisPromptEN = `You are a nutritionist. Analyze this nutrition label image.
Your tasks:
1. Read the 'Nutrition Facts' or 'Informasi Nilai Gizi' table in the image.
2. Extract numbers for: calories, protein, fat, carbs, sugar, sodium, fiber, cholesterol, calcium, iron and potassium. Use grams for macros and mg for sodium.
3. Read the ingredients list if visible and report it in "ingredients".
4. Give a health_score 0-100 and a grade using these bands: >80 A, 65-80 B, 50-64 C, 35-49 D, <35 E.
5. Fill "summary" with at most 2 sentences, "pros" and "cons" with at most 3 short points each, and "warnings" with allergen or quality flags.
If the label is hard to read, ESTIMATE reasonable values instead of filling everything with zero.

Answer ONLY with JSON exactly shaped as:
%s`

const chatPromptID = `Kamu adalah asisten gizi yang ramah. Jawab pertanyaan pengguna tentang produk berikut dengan singkat dan jelas, tanpa format tebal atau miring.

Konteks produk:
%s

Pertanyaan: %s`

const chatPromptEN = `You are a friendly nutrition assistant. Answer the user's question about the following product briefly and clearly, without bold or italic formatting.

Product context:
%s

Question: %s`

// analysisPrompt returns the instructional prompt for a language. Anything
// that is not English falls back to Indonesian, the app's primary locale.
func analysisPrompt(language string) string {
	if language == "en" {
		return fmt.Sprintf(analysisPromptEN, jsonShape)
	}
	return fmt.Sprintf(analysisPromptID, jsonShape)
}

func chatPrompt(productContext, question, language string) string {
	if language == "en" {
		return fmt.Sprintf(chatPromptEN, productContext, question)
	}
	return fmt.Sprintf(chatPromptID, productContext, question)
}
