// Package password hashes account passwords with Argon2id for the fake
// account service.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Password policy is not enforced here.
package password
