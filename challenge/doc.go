// Package challenge provides goEnroll.ChallengeProvider implementations.
//
//   - [Static] returns a fixed token, for tests and trusted environments.
//   - [Func] adapts a function.
//   - [Relay] bridges a callback-driven challenge widget (an embedded browser,
//     a separate process) into a blocking Token call: the widget side reads
//     [Request] values from Requests and answers with Resolve or Reject.
//
// Timeouts are enforced by the Engine; providers only need to honor ctx.
package challenge
