// Package models lists the Gemini and OpenAI models available to the
// configured API keys, grouped into text models (for analysis) and speech
// models (for TTS).
package models
