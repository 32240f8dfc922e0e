package models

import "errors"

var (
	ErrFighterNotFound    = errors.New("fighter not found")
	ErrPredictionNotFound = errors.New("prediction not found")
)
