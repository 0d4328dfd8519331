// Package settings holds the site-wide second-factor options: whether 2FA is
// offered, who it is forced on, the grace-login budget, drift, code and key
// lengths, and replay scope.
//
// Options load from AUTHPRESS_* environment variables (FromEnv). A Provider
// hands the current options to the authenticator on each login; Static serves
// a fixed value and RedisProvider overlays a Redis hash (authpress:options) so
// an admin can change policy at runtime.
package settings
