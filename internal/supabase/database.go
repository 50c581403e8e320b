package supabase

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"sediment-analysis-backend/internal/models"
)

// DatabaseClient is the record store. Every query is scoped by doctor_id,
// directly or through the row it hangs off, so one clinician can never read
// another's rows.
type DatabaseClient struct {
	db *sql.DB

	// joinDetails selects between the JoinedQuery and ManualFanoutQuery
	// variants for reads touching the optional patient_details relation.
	// Decided once at startup by a capability probe, or forced off by
	// configuration, instead of catching arbitrary query errors at runtime.
	joinDetails bool
}

func NewDatabaseClient(connectionString string, disableJoins bool) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &DatabaseClient{db: db}
	if !disableJoins {
		client.joinDetails = client.probeDetailsRelation()
	}
	if !client.joinDetails {
		log.Println("record store: relational joins disabled, using fan-out queries")
	}
	return client, nil
}

// probeDetailsRelation checks whether the optional patient_details table is
// present in this deployment.
func (d *DatabaseClient) probeDetailsRelation() bool {
	var ok sql.NullBool
	err := d.db.QueryRow(`SELECT to_regclass('public.patient_details') IS NOT NULL`).Scan(&ok)
	return err == nil && ok.Valid && ok.Bool
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

// IsNotFound reports whether err means the queried row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GetVisit loads a visit without filtering by owner; the caller compares the
// owner against the authenticated identity to tell 403 from 404.
func (d *DatabaseClient) GetVisit(visitID uuid.UUID) (*models.Visit, error) {
	var visit models.Visit
	err := d.db.QueryRow(`
		SELECT id, doctor_id, case_id, visit_date
		FROM visits
		WHERE id = $1
	`, visitID).Scan(&visit.ID, &visit.DoctorID, &visit.CaseID, &visit.VisitDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

// CreateImage inserts the image metadata row and fills in the generated id
// and timestamp. The record store's primary-key generation is the sole
// source of identifier uniqueness.
func (d *DatabaseClient) CreateImage(img *models.ImageRecord) error {
	err := d.db.QueryRow(`
		INSERT INTO images (doctor_id, visit_id, storage_path, original_filename, content_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, img.DoctorID, img.VisitID, img.StoragePath, img.OriginalFilename, img.ContentType).
		Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create image record: %w", err)
	}
	return nil
}

func (d *DatabaseClient) CreateAnalysis(analysis *models.AnalysisRecord) error {
	countsJSON, err := json.Marshal(analysis.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}
	detectionsJSON, err := json.Marshal(analysis.Detections)
	if err != nil {
		return fmt.Errorf("failed to marshal detections: %w", err)
	}

	err = d.db.QueryRow(`
		INSERT INTO analysis_results (doctor_id, image_id, model_name, counts, detections)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, analysis.DoctorID, analysis.ImageID, analysis.ModelName, countsJSON, detectionsJSON).
		Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis record: %w", err)
	}
	return nil
}

// ListPatients returns the clinician's patients with the denormalized alias
// from patient_details when that relation is available. Search filtering
// happens here rather than in SQL because the alias may live behind the
// optional relation.
func (d *DatabaseClient) ListPatients(doctorID uuid.UUID, search string) ([]models.Patient, error) {
	var patients []models.Patient
	var err error
	if d.joinDetails {
		patients, err = d.listPatientsJoined(doctorID)
	} else {
		patients, err = d.listPatientsFanout(doctorID)
	}
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return patients, nil
	}

	filtered := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Code), term) {
			filtered = append(filtered, p)
			continue
		}
		if p.Alias.Valid && strings.Contains(strings.ToLower(p.Alias.String), term) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (d *DatabaseClient) listPatientsJoined(doctorID uuid.UUID) ([]models.Patient, error) {
	rows, err := d.db.Query(`
		SELECT p.id, p.doctor_id, p.code, pd.alias, p.created_at
		FROM patients p
		LEFT JOIN patient_details pd ON pd.patient_id = p.id
		WHERE p.doctor_id = $1
		ORDER BY p.code
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	return scanPatients(rows)
}

func (d *DatabaseClient) listPatientsFanout(doctorID uuid.UUID) ([]models.Patient, error) {
	rows, err := d.db.Query(`
		SELECT id, doctor_id, code, NULL, created_at
		FROM patients
		WHERE doctor_id = $1
		ORDER BY code
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	// Alias stays empty: the details relation is not available in this
	// deployment, and primary rows win over related data.
	return scanPatients(rows)
}

func scanPatients(rows *sql.Rows) ([]models.Patient, error) {
	var patients []models.Patient
	for rows.Next() {
		var p models.Patient
		if err := rows.Scan(&p.ID, &p.DoctorID, &p.Code, &p.Alias, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (d *DatabaseClient) ListCases(doctorID uuid.UUID, patientID *uuid.UUID) ([]models.Case, error) {
	if d.joinDetails {
		return d.listCasesJoined(doctorID, patientID)
	}
	return d.listCasesFanout(doctorID, patientID)
}

func (d *DatabaseClient) listCasesJoined(doctorID uuid.UUID, patientID *uuid.UUID) ([]models.Case, error) {
	query := `
		SELECT c.id, c.doctor_id, c.patient_id, c.title, p.code, c.created_at
		FROM cases c
		LEFT JOIN patients p ON p.id = c.patient_id
		WHERE c.doctor_id = $1`
	args := []interface{}{doctorID}
	if patientID != nil {
		query += ` AND c.patient_id = $2`
		args = append(args, *patientID)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []models.Case
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.DoctorID, &c.PatientID, &c.Title, &c.PatientCode, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (d *DatabaseClient) listCasesFanout(doctorID uuid.UUID, patientID *uuid.UUID) ([]models.Case, error) {
	query := `
		SELECT id, doctor_id, patient_id, title, created_at
		FROM cases
		WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	if patientID != nil {
		query += ` AND patient_id = $2`
		args = append(args, *patientID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []models.Case
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.DoctorID, &c.PatientID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cases {
		var code string
		err := d.db.QueryRow(`SELECT code FROM patients WHERE id = $1 AND doctor_id = $2`,
			cases[i].PatientID, doctorID).Scan(&code)
		if err != nil {
			// Related entity unresolved: keep the case, leave the code empty.
			continue
		}
		cases[i].PatientCode = sql.NullString{String: code, Valid: true}
	}
	return cases, nil
}

func (d *DatabaseClient) ListVisits(doctorID uuid.UUID, caseID *uuid.UUID) ([]models.Visit, error) {
	query := `
		SELECT id, doctor_id, case_id, visit_date
		FROM visits
		WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	if caseID != nil {
		query += ` AND case_id = $2`
		args = append(args, *caseID)
	}
	query += ` ORDER BY visit_date DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.ID, &v.DoctorID, &v.CaseID, &v.VisitDate); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (d *DatabaseClient) ListImages(visitID, doctorID uuid.UUID) ([]models.ImageRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, doctor_id, visit_id, storage_path, original_filename, content_type, created_at
		FROM images
		WHERE visit_id = $1 AND doctor_id = $2
		ORDER BY created_at DESC
	`, visitID, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []models.ImageRecord
	for rows.Next() {
		var img models.ImageRecord
		if err := rows.Scan(&img.ID, &img.DoctorID, &img.VisitID, &img.StoragePath,
			&img.OriginalFilename, &img.ContentType, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// FindImageByPath looks up an image row by its storage path, scoped to the
// owning clinician.
func (d *DatabaseClient) FindImageByPath(storagePath string, doctorID uuid.UUID) (*models.ImageRecord, error) {
	var img models.ImageRecord
	err := d.db.QueryRow(`
		SELECT id, doctor_id, visit_id, storage_path, original_filename, content_type, created_at
		FROM images
		WHERE storage_path = $1 AND doctor_id = $2
	`, storagePath, doctorID).Scan(&img.ID, &img.DoctorID, &img.VisitID, &img.StoragePath,
		&img.OriginalFilename, &img.ContentType, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find image by path: %w", err)
	}
	return &img, nil
}

// AnalysisWithImage pairs an analysis row with its referenced image. Image
// is nil when the related row could not be resolved; the analysis is still
// returned.
type AnalysisWithImage struct {
	Analysis models.AnalysisRecord
	Image    *models.ImageRecord
}

// ListAnalyses returns the clinician's analyses, optionally filtered by image
// or visit. The visit filter is resolved in two steps: collect the visit's
// image ids, then filter analyses by those ids.
func (d *DatabaseClient) ListAnalyses(doctorID uuid.UUID, visitID, imageID *uuid.UUID) ([]AnalysisWithImage, error) {
	var imageIDs []uuid.UUID
	if visitID != nil {
		images, err := d.ListImages(*visitID, doctorID)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			return []AnalysisWithImage{}, nil
		}
		imageIDs = make([]uuid.UUID, len(images))
		for i, img := range images {
			imageIDs[i] = img.ID
		}
	}

	query := `
		SELECT id, doctor_id, image_id, model_name, counts, detections, created_at
		FROM analysis_results
		WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	if imageID != nil {
		query += ` AND image_id = $2`
		args = append(args, *imageID)
	} else if len(imageIDs) > 0 {
		placeholders := make([]string, len(imageIDs))
		for i, id := range imageIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query += ` AND image_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []AnalysisWithImage
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, AnalysisWithImage{Analysis: *analysis})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fan-out join to images. A missing image never drops the analysis.
	for i := range analyses {
		img, err := d.getImage(analyses[i].Analysis.ImageID, doctorID)
		if err != nil {
			log.Printf("record store: analysis %s has unresolvable image: %v",
				analyses[i].Analysis.ID, err)
			continue
		}
		analyses[i].Image = img
	}
	return analyses, nil
}

// AnalysisDetail adds the visit -> case -> patient chain to a single
// analysis.
type AnalysisDetail struct {
	Analysis models.AnalysisRecord
	Image    *models.ImageRecord
	Visit    *models.VisitContext
}

func (d *DatabaseClient) GetAnalysis(analysisID, doctorID uuid.UUID) (*AnalysisDetail, error) {
	row := d.db.QueryRow(`
		SELECT id, doctor_id, image_id, model_name, counts, detections, created_at
		FROM analysis_results
		WHERE id = $1 AND doctor_id = $2
	`, analysisID, doctorID)

	analysis, err := scanAnalysis(row)
	if err != nil {
		return nil, err
	}

	detail := &AnalysisDetail{Analysis: *analysis}

	img, err := d.getImage(analysis.ImageID, doctorID)
	if err != nil {
		log.Printf("record store: analysis %s has unresolvable image: %v", analysis.ID, err)
		return detail, nil
	}
	detail.Image = img

	if d.joinDetails {
		detail.Visit = d.visitContextJoined(img.VisitID, doctorID)
	} else {
		detail.Visit = d.visitContextFanout(img.VisitID, doctorID)
	}
	return detail, nil
}

func (d *DatabaseClient) getImage(imageID, doctorID uuid.UUID) (*models.ImageRecord, error) {
	var img models.ImageRecord
	err := d.db.QueryRow(`
		SELECT id, doctor_id, visit_id, storage_path, original_filename, content_type, created_at
		FROM images
		WHERE id = $1 AND doctor_id = $2
	`, imageID, doctorID).Scan(&img.ID, &img.DoctorID, &img.VisitID, &img.StoragePath,
		&img.OriginalFilename, &img.ContentType, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

func (d *DatabaseClient) visitContextJoined(visitID, doctorID uuid.UUID) *models.VisitContext {
	var ctx models.VisitContext
	var caseID, patientID sql.NullString
	var caseTitle, patientCode sql.NullString
	err := d.db.QueryRow(`
		SELECT v.id, v.visit_date, c.id, c.title, p.id, p.code
		FROM visits v
		LEFT JOIN cases c ON c.id = v.case_id
		LEFT JOIN patients p ON p.id = c.patient_id
		WHERE v.id = $1 AND v.doctor_id = $2
	`, visitID, doctorID).Scan(&ctx.ID, &ctx.VisitDate, &caseID, &caseTitle, &patientID, &patientCode)
	if err != nil {
		log.Printf("record store: visit context for %s unresolved: %v", visitID, err)
		return nil
	}

	if caseID.Valid {
		caseCtx := &models.CaseContext{Title: caseTitle.String}
		caseCtx.ID, _ = uuid.Parse(caseID.String)
		if patientID.Valid {
			patientCtx := &models.PatientContext{Code: patientCode.String}
			patientCtx.ID, _ = uuid.Parse(patientID.String)
			caseCtx.Patient = patientCtx
		}
		ctx.Case = caseCtx
	}
	return &ctx
}

func (d *DatabaseClient) visitContextFanout(visitID, doctorID uuid.UUID) *models.VisitContext {
	visit, err := d.GetVisit(visitID)
	if err != nil || visit.DoctorID != doctorID {
		return nil
	}
	ctx := &models.VisitContext{ID: visit.ID, VisitDate: visit.VisitDate}

	var title string
	var patientID uuid.UUID
	err = d.db.QueryRow(`SELECT title, patient_id FROM cases WHERE id = $1 AND doctor_id = $2`,
		visit.CaseID, doctorID).Scan(&title, &patientID)
	if err != nil {
		return ctx
	}
	caseCtx := &models.CaseContext{ID: visit.CaseID, Title: title}

	var code string
	err = d.db.QueryRow(`SELECT code FROM patients WHERE id = $1 AND doctor_id = $2`,
		patientID, doctorID).Scan(&code)
	if err == nil {
		caseCtx.Patient = &models.PatientContext{ID: patientID, Code: code}
	}
	ctx.Case = caseCtx
	return ctx
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var analysis models.AnalysisRecord
	var countsJSON, detectionsJSON []byte
	err := row.Scan(&analysis.ID, &analysis.DoctorID, &analysis.ImageID, &analysis.ModelName,
		&countsJSON, &detectionsJSON, &analysis.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	if len(countsJSON) > 0 {
		if err := json.Unmarshal(countsJSON, &analysis.Counts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counts: %w", err)
		}
	}
	if len(detectionsJSON) > 0 {
		if err := json.Unmarshal(detectionsJSON, &analysis.Detections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal detections: %w", err)
		}
	}
	return &analysis, nil
}
