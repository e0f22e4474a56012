// Package ui implements the terminal guessing game using bubbletea's Elm architecture.
//
// A [Game] deals the playable cards of a mapping in random order. Each card moves
// through three stages:
//  1. [StageHidden] : the player types a year guess (or just presses enter)
//  2. [StageRevealed] : artist, title and year are shown and the guess is scored
//  3. next card, or [StageFinished] with the round history
//
// Pressing / opens a card-code prompt. Scanned codes like plex:12345 are resolved
// against the mapping by card ID, rating key or alternative key, and that card is
// played next.
//
// The (view) [Model] implements Init/Update/View and receives results through the Msg union type.
package ui
