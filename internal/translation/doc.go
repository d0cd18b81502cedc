// Package translation provides Japanese to Traditional Chinese sentence
// translation using the OpenAI API. Sentences analyzed offline carry no
// translation; this fills it in before a sentence card is saved.
package translation
