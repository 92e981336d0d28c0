package model

import "google.golang.org/grpc"

// SecurityLayer provides the transport credentials used to dial the identity service.
type SecurityLayer interface {
	DialOption() (grpc.DialOption, error)
}
