package domain

import "time"

// PresenceState : online/offline persisté avec le timestamp du changement.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Presence est l'état de présence d'un utilisateur.
// La copie éphémère (Redis) fait autorité tant qu'une connexion est vivante ;
// le miroir durable (Postgres) peut être en retard, c'est accepté.
type Presence struct {
	UID        string
	State      PresenceState
	LastChange time.Time
}

// ConnectivityEvent est le signal du feed de connectivité de la plateforme.
type ConnectivityEvent int

const (
	// Connected : un chemin réseau vers le store éphémère est disponible.
	Connected ConnectivityEvent = iota
	// Disconnected : plus de chemin réseau local. Le hook de déconnexion
	// côté serveur est injoignable, seul le miroir durable reste accessible.
	Disconnected
)
