// Package assets validates asset names and classifies them by type.
//
// Names follow the chain's grammar: ROOT, ROOT/SUB, ROOT#UNIQUE, ROOT~CHANNEL,
// ROOT^VOTE, ROOT! (owner), #QUALIFIER, #QUALIFIER/#SUB, and $RESTRICTED.
package assets
