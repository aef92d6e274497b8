package controllers

import "time"

// maxWait caps the long-poll duration of a forward fetch.
const maxWait = 30 * time.Second

// defaultLimit is used for listings when the request gives none.
const defaultLimit = 100
