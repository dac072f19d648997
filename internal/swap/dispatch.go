package swap

// HandleSwapComplete processes an inbound SwapComplete notification:
// locate the deal and advance it to SwapCompleted. Unknown hashes are
// silently absorbed (logged, not failed).
func (c *Coordinator) HandleSwapComplete(msg SwapComplete) error {
	rHash, err := parseRHash(msg.RHash)
	if err != nil {
		return err
	}

	d := c.registry.Get(rHash)
	if d == nil {
		c.log.Debug("swap-complete for unknown deal", "r_hash", msg.RHash)
		return nil
	}

	d.advancePhase(PhaseSwapCompleted, c.now())
	return nil
}

// HandleSwapError processes an inbound SwapError notification: locate the
// deal and transition it to Error with the supplied message. Unknown
// hashes are silently absorbed.
func (c *Coordinator) HandleSwapError(msg SwapError) error {
	rHash, err := parseRHash(msg.RHash)
	if err != nil {
		return err
	}

	d := c.registry.Get(rHash)
	if d == nil {
		c.log.Debug("swap-error for unknown deal", "r_hash", msg.RHash)
		return nil
	}

	c.fail(d, msg.ErrorMessage)
	return nil
}
