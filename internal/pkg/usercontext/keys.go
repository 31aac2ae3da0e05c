package usercontext

// KeyUserContext is the fiber Locals key holding the request UserContext.
const KeyUserContext = "USER_CONTEXT"
