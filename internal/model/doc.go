// Package model defines the documents kotoba stores and exchanges: analyzed
// words and sentences, saved analyses, flashcard decks and the backup
// document. The JSON shapes match the backup file format.
package model
