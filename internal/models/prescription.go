package models

// MedicineLine is one row of a prescription's medicine table.
type MedicineLine struct {
	Medicine    string `json:"medicine" validate:"required"`
	Schedule    string `json:"schedule" validate:"required"`
	Route       string `json:"route" validate:"required"`
	Instruction string `json:"instruction" validate:"required"`
	Days        string `json:"days" validate:"required"`
}

// Prescription is written by a doctor during the checkup of a pending
// appointment. The appointment is referenced, not owned.
type Prescription struct {
	AppointmentID int64          `json:"appointmentId,omitempty"`
	Diagnosis     string         `json:"diagnosis" validate:"required"`
	Symptoms      string         `json:"symptoms" validate:"required"`
	Advice        string         `json:"advice" validate:"required"`
	FollowUpDate  string         `json:"followUpDate" validate:"omitempty,datetime=2006-01-02"`
	Medicines     []MedicineLine `json:"medicines" validate:"required,min=1,dive"`
}

// NewPrescriptionDraft returns an empty prescription with one blank medicine row.
func NewPrescriptionDraft(appointmentID int64) *Prescription {
	return &Prescription{
		AppointmentID: appointmentID,
		Medicines:     []MedicineLine{{}},
	}
}

// AddMedicine appends a blank row.
func (p *Prescription) AddMedicine() {
	p.Medicines = append(p.Medicines, MedicineLine{})
}

// RemoveMedicine drops row i. Out of range indexes are ignored.
func (p *Prescription) RemoveMedicine(i int) {
	if i < 0 || i >= len(p.Medicines) {
		return
	}
	p.Medicines = append(p.Medicines[:i], p.Medicines[i+1:]...)
}
