package sim

import "errors"

var (
    ErrNoLeader    = errors.New("sim: no leader elected")
    ErrBadScenario = errors.New("sim: invalid scenario")
)
