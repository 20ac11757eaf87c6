// Package domain contains the core entities of the collection service:
// artworks, followed users, and collection run logs. Types here hold
// validation and state-transition rules only; persistence lives behind the
// store interfaces.
package domain
