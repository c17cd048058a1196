// Package db persists prediction and training history in SQLite.
package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite handle. It is constructed once at startup and
// injected into whoever needs it; there is no package-level connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	handle, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        kind TEXT NOT NULL,
        city TEXT,
        area TEXT,
        parking_type TEXT,
        predicted_price REAL,
        price_multiplier REAL,
        is_available INTEGER,
        confidence REAL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        task TEXT NOT NULL,
        model_kind TEXT NOT NULL,
        data_points INTEGER,
        rmse REAL,
        mae REAL,
        r2 REAL,
        mape REAL,
        accuracy REAL,
        f1 REAL,
        trained_at DATETIME NOT NULL
    );
    `
	if _, err := handle.Exec(schema); err != nil {
		handle.Close()
		return nil, err
	}

	return &Store{db: handle}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PredictionRecord is one logged prediction. Price fields are set for
// pricing predictions, Available for availability predictions.
type PredictionRecord struct {
	Kind            string
	City            string
	Area            string
	ParkingType     string
	PredictedPrice  *float64
	PriceMultiplier *float64
	Available       *bool
	Confidence      float64
}

// SavePrediction appends a prediction to the log.
func (s *Store) SavePrediction(rec PredictionRecord) error {
	var price, multiplier sql.NullFloat64
	if rec.PredictedPrice != nil {
		price = sql.NullFloat64{Float64: *rec.PredictedPrice, Valid: true}
	}
	if rec.PriceMultiplier != nil {
		multiplier = sql.NullFloat64{Float64: *rec.PriceMultiplier, Valid: true}
	}
	var available sql.NullBool
	if rec.Available != nil {
		available = sql.NullBool{Bool: *rec.Available, Valid: true}
	}

	_, err := s.db.Exec(`
        INSERT INTO predictions (kind, city, area, parking_type, predicted_price, price_multiplier, is_available, confidence)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.City, rec.Area, rec.ParkingType, price, multiplier, available, rec.Confidence)
	return err
}

// TrainingRun is one row of the training log.
type TrainingRun struct {
	Task       string    `json:"task"`
	ModelKind  string    `json:"model_kind"`
	DataPoints int       `json:"data_points"`
	RMSE       float64   `json:"rmse"`
	MAE        float64   `json:"mae"`
	R2         float64   `json:"r2"`
	MAPE       float64   `json:"mape"`
	Accuracy   float64   `json:"accuracy"`
	F1         float64   `json:"f1"`
	TrainedAt  time.Time `json:"trained_at"`
}

// SaveTrainingRun records the outcome of a training run.
func (s *Store) SaveTrainingRun(run TrainingRun) error {
	_, err := s.db.Exec(`
        INSERT INTO training_log (task, model_kind, data_points, rmse, mae, r2, mape, accuracy, f1, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Task, run.ModelKind, run.DataPoints,
		run.RMSE, run.MAE, run.R2, run.MAPE, run.Accuracy, run.F1, run.TrainedAt)
	return err
}

// LoadTrainingLog returns training runs, most recent first.
func (s *Store) LoadTrainingLog() ([]TrainingRun, error) {
	rows, err := s.db.Query(`
        SELECT task, model_kind, data_points, rmse, mae, r2, mape, accuracy, f1, trained_at
        FROM training_log
        ORDER BY trained_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var rmse, mae, r2, mape, accuracy, f1 sql.NullFloat64
		var dataPoints sql.NullInt64
		if err := rows.Scan(&run.Task, &run.ModelKind, &dataPoints,
			&rmse, &mae, &r2, &mape, &accuracy, &f1, &run.TrainedAt); err != nil {
			return nil, err
		}
		run.DataPoints = int(dataPoints.Int64)
		run.RMSE = rmse.Float64
		run.MAE = mae.Float64
		run.R2 = r2.Float64
		run.MAPE = mape.Float64
		run.Accuracy = accuracy.Float64
		run.F1 = f1.Float64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
