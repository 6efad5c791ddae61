package main

import "errors"

// Static sentinel errors raised by the CLI layer itself, before any request
// reaches the driver or its taxonomy.
var errMissingPool = errors.New("no pool configured: set jovian_pool in --config or pass --pool")
