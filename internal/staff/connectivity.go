package staff

// Connectivity is the online/offline signal the repository consumes.
type Connectivity interface {
	// Online reports the current state.
	Online() bool

	// Subscribe returns a channel that receives the state after every change,
	// and a function that ends the subscription. Receivers that fall behind
	// only observe the latest state.
	Subscribe() (<-chan bool, func())
}
