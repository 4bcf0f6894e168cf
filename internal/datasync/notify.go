package datasync

import (
	"sync"
)

// Variant is the visual style of a notification.
type Variant int

const (
	VariantDefault Variant = iota
	VariantDestructive
)

func (v Variant) String() string {
	if v == VariantDestructive {
		return "destructive"
	}
	return "default"
}

// Notification is a transient user-facing message.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder keeps every notification; used by tests and the CLI.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the notifications recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

const errorTitle = "Errore"

type messages struct {
	successTitle string
	successText  string
	failureText  string
}

var mutationMessages = map[MutationKind]messages{
	CreateBinder: {"Binder creato", "Il binder è stato creato con successo",
		"Si è verificato un errore durante la creazione del binder"},
	UpdateBinder: {"Binder aggiornato", "Il binder è stato aggiornato con successo",
		"Si è verificato un errore durante l'aggiornamento del binder"},
	DeleteBinder: {"Binder eliminato", "Il binder è stato eliminato con successo",
		"Si è verificato un errore durante l'eliminazione del binder"},
	CreateCategory: {"Categoria creata", "La categoria è stata creata con successo",
		"Si è verificato un errore durante la creazione della categoria"},
	UpdateCategory: {"Categoria aggiornata", "La categoria è stata aggiornata con successo",
		"Si è verificato un errore durante l'aggiornamento della categoria"},
	DeleteCategory: {"Categoria eliminata", "La categoria è stata eliminata con successo",
		"Si è verificato un errore durante l'eliminazione della categoria"},
	CreateTransaction: {"Transazione creata", "La transazione è stata creata con successo",
		"Si è verificato un errore durante la creazione della transazione"},
	UpdateTransaction: {"Transazione aggiornata", "La transazione è stata aggiornata con successo",
		"Si è verificato un errore durante l'aggiornamento della transazione"},
	DeleteTransaction: {"Transazione eliminata", "La transazione è stata eliminata con successo",
		"Si è verificato un errore durante l'eliminazione della transazione"},
}

// SuccessNotification is raised after kind completes.
func SuccessNotification(kind MutationKind) Notification {
	m := mutationMessages[kind]
	return Notification{Title: m.successTitle, Description: m.successText}
}

// FailureNotification is raised when kind fails.
func FailureNotification(kind MutationKind) Notification {
	m := mutationMessages[kind]
	return Notification{Title: errorTitle, Description: m.failureText, Variant: VariantDestructive}
}

// Session notifications.
var (
	LoginNotification = Notification{
		Title:       "Login effettuato",
		Description: "Bentornato nel tuo GestoreBinder!",
	}
	LoginFailedNotification = Notification{
		Title:       errorTitle,
		Description: "Credenziali non valide. Riprova!",
		Variant:     VariantDestructive,
	}
	LogoutNotification = Notification{
		Title:       "Logout effettuato",
		Description: "Hai effettuato il logout con successo",
	}
	LogoutFailedNotification = Notification{
		Title:       errorTitle,
		Description: "Si è verificato un errore durante il logout",
		Variant:     VariantDestructive,
	}
)
