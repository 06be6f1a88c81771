// Package domain defines the quest/battle session types and the combat
// state payload validated by the engine.
package domain
