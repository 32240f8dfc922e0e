package models

type PredictRequest struct {
	FighterA string `json:"fighter_a" validate:"required,max=128"`
	FighterB string `json:"fighter_b" validate:"required,max=128,nefield=FighterA"`
	Model    string `json:"model" validate:"omitempty,oneof=classifier simulator blended ml sim ensemble"`
}

type SimulateRequest struct {
	FighterA string `json:"fighter_a" validate:"required,max=128"`
	FighterB string `json:"fighter_b" validate:"required,max=128"`
	Rounds   int    `json:"rounds" validate:"omitempty,oneof=3 5"`
	Trials   int    `json:"trials" validate:"omitempty,min=1,max=100000"`
	Strategy string `json:"strategy" validate:"omitempty,oneof=standard fatigue"`
	Seed     uint64 `json:"seed"`
}

type SimulateResponse struct {
	Fighters      []FighterSummary     `json:"fighters"`
	Probabilities ExchangeDistribution `json:"probabilities"`
	Results       map[string]float64   `json:"results"`
	Rounds        int                  `json:"rounds"`
	Trials        int                  `json:"trials"`
	Strategy      string               `json:"strategy"`
}

type Matchup struct {
	FighterA string `json:"fighter_a" validate:"required,max=128"`
	FighterB string `json:"fighter_b" validate:"required,max=128"`
}

type EventPredictRequest struct {
	Model  string    `json:"model" validate:"omitempty,oneof=classifier simulator blended ml sim ensemble"`
	Fights []Matchup `json:"fights" validate:"required,min=1,max=30,dive"`
}

type EventPredictResponse struct {
	BatchID  string `json:"batch_id"`
	EventID  string `json:"event_id"`
	Queued   int    `json:"queued"`
	Rejected int    `json:"rejected"`
}

type FightResultRequest struct {
	FighterA     string `json:"fighter_a" validate:"required"`
	FighterB     string `json:"fighter_b" validate:"required"`
	ActualWinner string `json:"actual_winner" validate:"required"`
	Event        string `json:"event"`
}

type FightResultResponse struct {
	Message            string `json:"message"`
	PredictionsUpdated int    `json:"predictions_updated"`
}
